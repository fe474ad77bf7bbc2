package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

// Result is a successful validation: the coupon and the discount it grants on
// the validated subtotal.
type Result struct {
	Coupon   *Coupon
	Discount Discount
}

// Validator checks whether a code may be applied to a cart. It never mutates
// usage counts.
type Validator struct {
	coupons Repository
	counter RedemptionCounter
	timeout time.Duration
	now     func() time.Time
}

// NewValidator creates a Validator. A zero timeout disables the deadline.
func NewValidator(coupons Repository, counter RedemptionCounter, timeout time.Duration) *Validator {
	return &Validator{
		coupons: coupons,
		counter: counter,
		timeout: timeout,
		now:     time.Now,
	}
}

// Validate runs every check in order and returns the first failure as a
// *ValidationError. Lookup failures are returned as wrapped errors.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor Actor) (*Result, error) {
	return v.validate(ctx, code, subtotal, currency, actor, true)
}

// Eligible runs the checks that do not depend on usage counts. It is used
// right before a ledger commit, which enforces both caps atomically.
func (v *Validator) Eligible(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor Actor) (*Result, error) {
	return v.validate(ctx, code, subtotal, currency, actor, false)
}

func (v *Validator) validate(ctx context.Context, code string, subtotal decimal.Decimal, currency string, actor Actor, withUsage bool) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, Reject(ErrCodeRequired)
	}
	if !IsValidCode(code) {
		return nil, Reject(ErrNotFound)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	c, err := v.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Reject(ErrNotFound)
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := v.checkEligibility(c, subtotal, currency, actor); err != nil {
		return nil, err
	}
	if withUsage {
		if err := v.checkUsage(ctx, c, actor); err != nil {
			return nil, err
		}
	}

	d, err := Resolve(c, subtotal, currency)
	if err != nil {
		return nil, err
	}
	return &Result{Coupon: c, Discount: d}, nil
}

func (v *Validator) checkEligibility(c *Coupon, subtotal decimal.Decimal, currency string, actor Actor) error {
	if !c.IsActive {
		return Reject(ErrInactive)
	}

	now := v.now()
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return &ValidationError{Kind: ErrOutOfWindow, Message: "This coupon is not yet valid"}
	}
	if c.ExpiryDate != nil && now.After(*c.ExpiryDate) {
		return Reject(ErrOutOfWindow)
	}

	if c.RequiresLogin && !actor.Authenticated() {
		return Reject(ErrLoginRequired)
	}

	if c.MinOrderValue.Valid && subtotal.LessThan(c.MinOrderValue.Decimal) {
		return &ValidationError{
			Kind:    ErrBelowMinimum,
			Message: fmt.Sprintf("Minimum order value of %s required", money.Format(c.MinOrderValue.Decimal, currency)),
		}
	}
	return nil
}

func (v *Validator) checkUsage(ctx context.Context, c *Coupon, actor Actor) error {
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return Reject(ErrGlobalLimitReached)
	}

	if c.MaxUsesPerUser != nil {
		key := actor.Key()
		if key == "" {
			return Reject(ErrLoginRequired)
		}
		used, err := v.counter.CountRedemptions(ctx, c.ID, key)
		if err != nil {
			return errors.Wrap(err, "count redemptions")
		}
		if used >= *c.MaxUsesPerUser {
			return Reject(ErrPerUserLimitReached)
		}
	}
	return nil
}
