package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (req *applyCouponRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			v, err := d.Str()
			req.Code = v
			return err
		default:
			return d.Skip()
		}
	})
}

type validateCouponRequest struct {
	Code         string          `json:"code"`
	CartTotal    decimal.Decimal `json:"cartTotal"`
	CurrencyCode string          `json:"currencyCode" validate:"omitempty,len=3,alpha"`
	SessionID    string          `json:"sessionId" validate:"omitempty,max=128,printascii"`
}

func (req *validateCouponRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			v, err := d.Str()
			req.Code = v
			return err
		case "cartTotal":
			v, err := decodeDecimal(d)
			req.CartTotal = v
			return err
		case "currencyCode":
			v, err := d.Str()
			req.CurrencyCode = v
			return err
		case "sessionId":
			v, err := d.Str()
			req.SessionID = v
			return err
		default:
			return d.Skip()
		}
	})
}

// ApplyCoupon validates a code against the live cart and remembers it for
// the cart's summary.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	cartID := chi.URLParam(r, "cartID")
	if _, err := h.checkout.ApplyCoupon(r.Context(), cartID, ActorFromContext(r.Context()), req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoredCart(w, r, http.StatusOK, cartID)
}

// RemoveCoupon forgets the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if _, err := h.checkout.RemoveCoupon(r.Context(), cartID, ActorFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStoredCart(w, r, http.StatusOK, cartID)
}

// ValidateCoupon checks a code against a client-reported cart total. Nothing is
// stored and the result is informational only.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor := ActorFromContext(r.Context())
	if req.SessionID != "" && !actor.Authenticated() {
		actor.GuestSessionID = req.SessionID
	}

	res, err := h.checkout.ValidateCode(r.Context(), req.Code, req.CartTotal, req.CurrencyCode, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeValidation(e, res, req.CurrencyCode)
	})
}

func encodeValidation(e *jx.Encoder, res *coupon.Result, currency string) {
	e.ObjStart()
	e.FieldStart("coupon")
	e.ObjStart()
	fieldStr(e, "code", res.Coupon.Code)
	fieldStr(e, "type", string(res.Coupon.Type))
	fieldAmount(e, "discountAmount", res.Discount.Amount, currency)
	fieldStr(e, "description", res.Discount.Description)
	fieldBool(e, "freeShipping", res.Discount.FreeShipping)
	e.ObjEnd()
	e.ObjEnd()
}
