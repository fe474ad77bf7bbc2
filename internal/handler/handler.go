// Package handler exposes the cart, coupon and checkout services over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/footwear-cart/internal/domain/cart"
	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// JWTSecret verifies HS256 bearer tokens. When empty, bearer tokens are
	// rejected and every caller is a guest.
	JWTSecret string
	// SecureCookies sets the Secure flag on the guest session cookie.
	SecureCookies bool
	// ValidateLimit wraps the coupon validation route. Optional.
	ValidateLimit func(http.Handler) http.Handler
}

// Handler serves the storefront pricing API.
type Handler struct {
	carts    *cart.Service
	checkout *checkout.Service

	jwtSecret     []byte
	secureCookies bool
	validateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, carts *cart.Service, checkoutSvc *checkout.Service) *Handler {
	return &Handler{
		carts:         carts,
		checkout:      checkoutSvc,
		jwtSecret:     []byte(cfg.JWTSecret),
		secureCookies: cfg.SecureCookies,
		validateLimit: cfg.ValidateLimit,
	}
}

// Routes returns the API router. Routes are relative to the /api prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.identify)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/lines", h.AddLine)
			r.Patch("/lines/{lineID}", h.UpdateLine)
			r.Post("/lines/remove", h.RemoveLines)
			r.Post("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.RemoveCoupon)
		})
	})

	r.Group(func(r chi.Router) {
		if h.validateLimit != nil {
			r.Use(h.validateLimit)
		}
		r.Post("/coupons/validate", h.ValidateCoupon)
	})

	r.Post("/checkout/quote", h.Quote)
	r.Post("/checkout/confirm", h.Confirm)
	r.Post("/identity/merge", h.MergeIdentity)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, func(e *jx.Encoder) {
			errorBody(e, http.StatusNotFound, "route not found", "")
		})
	})
	return r
}
