// Package coupon validates promotional codes against a cart, resolves the
// discount they grant and defines the redemption ledger that owns usage counts.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeShipping grants free shipping and no monetary discount.
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed, DiscountFreeShipping:
		return true
	default:
		return false
	}
}

// Validation kinds. Each is wrapped by a *ValidationError carrying the
// customer-facing message.
var (
	ErrCodeRequired        = errors.New("coupon code required")
	ErrNotFound            = errors.New("coupon not found")
	ErrInactive            = errors.New("coupon inactive")
	ErrOutOfWindow         = errors.New("coupon outside validity window")
	ErrLoginRequired       = errors.New("coupon requires login")
	ErrBelowMinimum        = errors.New("order below coupon minimum")
	ErrGlobalLimitReached  = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached = errors.New("coupon per-user limit reached")
)

// ErrConcurrencyConflict matches ledger rejections caused by a concurrent
// redemption taking the last available use.
var ErrConcurrencyConflict = errors.New("coupon redemption conflict")

// ValidationError is a customer-correctable coupon rejection. Kind is one of
// the validation kind sentinels and is matched by errors.Is.
type ValidationError struct {
	Kind    error
	Message string
	// Conflict is set when the rejection came from the ledger at commit time,
	// after validation had already passed.
	Conflict bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Is matches ErrConcurrencyConflict for commit-time rejections.
func (e *ValidationError) Is(target error) bool {
	return e.Conflict && target == ErrConcurrencyConflict
}

var messages = map[error]string{
	ErrCodeRequired:        "Coupon code is required",
	ErrNotFound:            "Invalid coupon code",
	ErrInactive:            "This coupon is no longer active",
	ErrOutOfWindow:         "This coupon has expired",
	ErrLoginRequired:       "Please sign in to use this coupon",
	ErrBelowMinimum:        "Order total is below the coupon minimum",
	ErrGlobalLimitReached:  "This coupon has reached its usage limit",
	ErrPerUserLimitReached: "You have already used this coupon the maximum number of times",
}

var kindNames = map[error]string{
	ErrCodeRequired:        "code_required",
	ErrNotFound:            "not_found",
	ErrInactive:            "inactive",
	ErrOutOfWindow:         "out_of_window",
	ErrLoginRequired:       "login_required",
	ErrBelowMinimum:        "below_minimum",
	ErrGlobalLimitReached:  "global_limit_reached",
	ErrPerUserLimitReached: "per_user_limit_reached",
}

// KindName returns a stable snake_case name for the validation kind err
// wraps, or "" when err is not a validation rejection.
func KindName(err error) string {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return ""
	}
	return kindNames[ve.Kind]
}

// Reject returns a ValidationError for kind with its default message.
func Reject(kind error) *ValidationError {
	return &ValidationError{Kind: kind, Message: messages[kind]}
}

// Conflict returns a commit-time ValidationError for kind.
func Conflict(kind error) *ValidationError {
	e := Reject(kind)
	e.Conflict = true
	return e
}

// Coupon is a promotional rule. UsedCount is owned by the Ledger and is only
// read here.
type Coupon struct {
	ID             string
	Code           string
	Description    string
	Type           DiscountType
	Value          decimal.Decimal
	MinOrderValue  decimal.NullDecimal
	MaxUses        *int
	UsedCount      int
	MaxUsesPerUser *int
	RequiresLogin  bool
	IsActive       bool
	StartDate      *time.Time
	ExpiryDate     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository provides coupon lookup by code.
type Repository interface {
	// FindByCode returns the coupon with the normalized code or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

// RedemptionCounter reports how many times an actor redeemed a coupon.
type RedemptionCounter interface {
	CountRedemptions(ctx context.Context, couponID, actorKey string) (int, error)
}
