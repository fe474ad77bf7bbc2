package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/footwear-cart/internal/domain/cart"
	"github.com/xenking/footwear-cart/internal/domain/checkout"
	"github.com/xenking/footwear-cart/internal/domain/coupon"
	"github.com/xenking/footwear-cart/internal/domain/money"
)

// writeError maps domain errors to statuses. Unknown errors are logged and
// returned as 500 without details.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = http.StatusText(status)
	}
	kind := coupon.KindName(err)
	writeJSON(w, status, func(e *jx.Encoder) {
		errorBody(e, status, msg, kind)
	})
}

func errorBody(e *jx.Encoder, status int, msg, kind string) {
	e.ObjStart()
	fieldInt(e, "code", status)
	fieldStr(e, "error", msg)
	if kind != "" {
		fieldStr(e, "kind", kind)
	}
	e.ObjEnd()
}

func statusFor(err error) int {
	var (
		bad *badRequestError
		ve  *coupon.ValidationError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &ve):
		return validationStatus(ve)
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForeignGuestSession):
		return http.StatusForbidden
	case errors.Is(err, coupon.ErrIdempotencyMismatch),
		errors.Is(err, cart.ErrCheckedOut):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrOutcomeUnknown):
		return http.StatusServiceUnavailable
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, checkout.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrVariantNotFound),
		errors.Is(err, cart.ErrVariantUnavailable),
		errors.Is(err, cart.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, money.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrOrderIDRequired),
		errors.Is(err, coupon.ErrInvalidCommit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func validationStatus(ve *coupon.ValidationError) int {
	switch {
	case errors.Is(ve.Kind, coupon.ErrCodeRequired):
		return http.StatusBadRequest
	case errors.Is(ve.Kind, coupon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(ve.Kind, coupon.ErrLoginRequired):
		return http.StatusUnauthorized
	case ve.Conflict:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
