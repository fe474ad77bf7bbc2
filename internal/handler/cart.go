package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/footwear-cart/internal/domain/cart"
	"github.com/xenking/footwear-cart/internal/domain/checkout"
	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

type createCartRequest struct {
	CurrencyCode string `json:"currencyCode" validate:"omitempty,len=3,alpha"`
}

func (req *createCartRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "currencyCode":
			v, err := d.Str()
			req.CurrencyCode = v
			return err
		default:
			return d.Skip()
		}
	})
}

type addLineRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"max=9999"`
}

func (req *addLineRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "variantId":
			v, err := d.Str()
			req.VariantID = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
}

type updateLineRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=9999"`
}

func (req *updateLineRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "quantity":
			v, err := d.Int()
			req.Quantity = &v
			return err
		default:
			return d.Skip()
		}
	})
}

type removeLinesRequest struct {
	LineIDs []string `json:"lineIds" validate:"required,min=1,dive,required"`
}

func (req *removeLinesRequest) decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "lineIds":
			v, err := decodeStrings(d)
			req.LineIDs = v
			return err
		default:
			return d.Skip()
		}
	})
}

// CreateCart starts an empty cart.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.Create(r.Context(), req.CurrencyCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusCreated, c)
}

// GetCart returns the cart with its summary. A stored coupon is revalidated
// and dropped with a notice if it no longer applies.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeStoredCart(w, r, http.StatusOK, chi.URLParam(r, "cartID"))
}

// AddLine adds a variant to the cart.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.AddLine(r.Context(), chi.URLParam(r, "cartID"), req.VariantID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// UpdateLine sets a line's quantity. Zero removes it.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.UpdateLine(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), *req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// RemoveLines deletes lines by id.
func (h *Handler) RemoveLines(w http.ResponseWriter, r *http.Request) {
	var req removeLinesRequest
	if err := readBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.RemoveLines(r.Context(), chi.URLParam(r, "cartID"), req.LineIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// writeCart responds with the cart the mutation produced and a summary priced
// for the actor.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, c *cart.Cart) {
	writeCartSummary(w, status, c, h.checkout.Summarize(r.Context(), c, ActorFromContext(r.Context())))
}

// writeStoredCart reads the cart back for handlers that changed only its
// coupon hint.
func (h *Handler) writeStoredCart(w http.ResponseWriter, r *http.Request, status int, cartID string) {
	c, sum, err := h.checkout.CartSummary(r.Context(), cartID, ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeCartSummary(w, status, c, sum)
}

func writeCartSummary(w http.ResponseWriter, status int, c *cart.Cart, sum *checkout.Summary) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("cart")
		encodeCart(e, c)
		e.FieldStart("summary")
		encodeSummary(e, sum)
		e.ObjEnd()
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	fieldStr(e, "id", c.ID)
	fieldStr(e, "currencyCode", c.CurrencyCode)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		fieldStr(e, "id", l.ID)
		fieldStr(e, "variantId", l.VariantID)
		fieldInt(e, "quantity", l.Quantity)
		fieldAmount(e, "total", l.Total, c.CurrencyCode)
		e.ObjEnd()
	}
	e.ArrEnd()
	fieldInt(e, "totalQuantity", c.Totals.TotalQuantity)
	fieldBool(e, "checkedOut", c.CheckedOut())
	if c.CheckedOut() {
		fieldStr(e, "orderId", c.OrderID)
	}
	fieldStr(e, "createdAt", c.CreatedAt.UTC().Format(time.RFC3339))
	fieldStr(e, "updatedAt", c.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *checkout.Summary) {
	cur := s.CurrencyCode
	e.ObjStart()
	fieldStr(e, "cartId", s.CartID)
	fieldStr(e, "currencyCode", cur)
	fieldInt(e, "totalQuantity", s.TotalQuantity)
	fieldAmount(e, "subtotal", s.Subtotal, cur)
	fieldAmount(e, "discount", s.Discount, cur)
	fieldAmount(e, "tax", s.Tax, cur)
	fieldAmount(e, "shipping", s.Shipping, cur)
	fieldAmount(e, "total", s.Total, cur)
	fieldBool(e, "freeShipping", s.FreeShipping)
	fieldAmount(e, "freeShippingRemaining", s.FreeShippingRemaining, cur)
	if c := s.Coupon; c != nil {
		e.FieldStart("coupon")
		e.ObjStart()
		fieldStr(e, "code", c.Code)
		fieldStr(e, "description", c.Description)
		if c.Type != "" {
			fieldStr(e, "type", string(c.Type))
		}
		fieldAmount(e, "discountAmount", c.DiscountAmount, cur)
		fieldBool(e, "freeShipping", c.FreeShipping)
		e.ObjEnd()
	}
	if s.CouponError != nil {
		e.FieldStart("couponError")
		e.ObjStart()
		fieldStr(e, "error", s.CouponError.Error())
		if kind := coupon.KindName(s.CouponError); kind != "" {
			fieldStr(e, "kind", kind)
		}
		e.ObjEnd()
	}
	if s.Notice != "" {
		fieldStr(e, "notice", s.Notice)
	}
	e.ObjEnd()
}
