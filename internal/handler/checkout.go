package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

type quoteRequest struct {
	CartID     string `json:"cartId" validate:"required"`
	CouponCode string `json:"couponCode"`
}

func (req *quoteRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "cartId":
			v, err := d.Str()
			req.CartID = v
			return err
		case "couponCode":
			v, err := d.Str()
			req.CouponCode = v
			return err
		default:
			return d.Skip()
		}
	})
}

type confirmRequest struct {
	OrderID    string `json:"orderId" validate:"required,max=128"`
	CartID     string `json:"cartId" validate:"required"`
	CouponCode string `json:"couponCode"`
}

func (req *confirmRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "orderId":
			v, err := d.Str()
			req.OrderID = v
			return err
		case "cartId":
			v, err := d.Str()
			req.CartID = v
			return err
		case "couponCode":
			v, err := d.Str()
			req.CouponCode = v
			return err
		default:
			return d.Skip()
		}
	})
}

var errForeignGuestSession = errors.New("guest session does not belong to this request")

type mergeIdentityRequest struct {
	GuestSessionID string `json:"guestSessionId" validate:"omitempty,max=128,printascii"`
}

func (req *mergeIdentityRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "guestSessionId":
			v, err := d.Str()
			req.GuestSessionID = v
			return err
		default:
			return d.Skip()
		}
	})
}

// Quote prices the cart at payment initiation. A rejected coupon does not
// fail the request; the summary carries couponError instead.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sum, err := h.checkout.Quote(r.Context(), checkout.QuoteRequest{
		CartID:     req.CartID,
		Actor:      ActorFromContext(r.Context()),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("summary")
		encodeSummary(e, sum)
		e.ObjEnd()
	})
}

// Confirm commits the coupon redemption and records the order. Retries with
// the same orderId return the stored outcome.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	conf, err := h.checkout.Confirm(r.Context(), checkout.ConfirmRequest{
		OrderID:    req.OrderID,
		CartID:     req.CartID,
		Actor:      ActorFromContext(r.Context()),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if conf.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeConfirmation(e, conf)
	})
}

// MergeIdentity moves the request's own guest session usage to the signed-in
// user. A body guestSessionId naming any other session is refused.
func (h *Handler) MergeIdentity(w http.ResponseWriter, r *http.Request) {
	var req mergeIdentityRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	actor := ActorFromContext(r.Context())
	if req.GuestSessionID != "" && req.GuestSessionID != actor.GuestSessionID {
		h.writeError(w, r, errForeignGuestSession)
		return
	}
	n, err := h.checkout.MergeIdentity(r.Context(), actor, actor.GuestSessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		fieldInt(e, "merged", n)
		e.ObjEnd()
	})
}

func encodeConfirmation(e *jx.Encoder, conf *checkout.Confirmation) {
	o := conf.Order
	cur := o.CurrencyCode
	e.ObjStart()
	e.FieldStart("order")
	e.ObjStart()
	fieldStr(e, "id", o.ID)
	fieldStr(e, "cartId", o.CartID)
	fieldStr(e, "currencyCode", cur)
	fieldAmount(e, "subtotal", o.Subtotal, cur)
	fieldAmount(e, "discount", o.Discount, cur)
	fieldAmount(e, "total", o.Total, cur)
	if o.CouponCode != "" {
		fieldStr(e, "couponCode", o.CouponCode)
	}
	fieldBool(e, "freeShipping", o.FreeShipping)
	fieldStr(e, "createdAt", o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
	e.FieldStart("summary")
	encodeSummary(e, &conf.Summary)
	fieldBool(e, "replayed", conf.Replayed)
	fieldBool(e, "discountVoided", conf.DiscountVoided)
	if conf.VoidReason != "" {
		fieldStr(e, "voidReason", conf.VoidReason)
	}
	e.ObjEnd()
}
