package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrOutcomeUnknown is returned when a commit did not finish within its
	// deadline. The redemption may or may not have been recorded; retrying with
	// the same order id reconciles it.
	ErrOutcomeUnknown = errors.New("redemption outcome unknown")
	// ErrIdempotencyMismatch is returned when an order id was already redeemed
	// with a different coupon.
	ErrIdempotencyMismatch = errors.New("order already redeemed with a different coupon")
	// ErrInvalidCommit is returned for a CommitRequest missing required fields.
	ErrInvalidCommit = errors.New("invalid commit request")
)

// CommitRequest records one coupon use for one confirmed order. OrderID is the
// idempotency key.
type CommitRequest struct {
	CouponID       string
	ActorKey       string
	OrderID        string
	DiscountAmount decimal.Decimal
}

// Validate checks that the request is complete.
func (r CommitRequest) Validate() error {
	switch {
	case r.CouponID == "":
		return errors.Wrap(ErrInvalidCommit, "coupon id required")
	case r.ActorKey == "":
		return errors.Wrap(ErrInvalidCommit, "actor key required")
	case r.OrderID == "":
		return errors.Wrap(ErrInvalidCommit, "order id required")
	case r.DiscountAmount.IsNegative():
		return errors.Wrap(ErrInvalidCommit, "negative discount")
	}
	return nil
}

// Redemption is an append-only ledger row.
type Redemption struct {
	ID             string
	CouponID       string
	ActorKey       string
	OrderID        string
	DiscountAmount decimal.Decimal
	RedeemedAt     time.Time
	// Replayed is set when the order id had already been committed and the
	// prior row is returned without incrementing usage.
	Replayed bool
}

// Ledger is the only writer of coupon usage counts.
//
// Commit must, in one atomic unit, record the redemption keyed by OrderID,
// increment the coupon's used count only while it is below the global cap and
// enforce the per-actor cap. A lost race is reported as a Conflict
// ValidationError of kind ErrGlobalLimitReached or ErrPerUserLimitReached.
type Ledger interface {
	RedemptionCounter
	Commit(ctx context.Context, req CommitRequest) (*Redemption, error)
	// MergeActors re-keys every redemption of fromKey to toKey and returns the
	// number of rows moved. Merging twice is a no-op.
	MergeActors(ctx context.Context, fromKey, toKey string) (int, error)
}

// Commit calls l.Commit under timeout. A deadline hit is reported as
// ErrOutcomeUnknown.
func Commit(ctx context.Context, l Ledger, req CommitRequest, timeout time.Duration) (*Redemption, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r, err := l.Commit(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrOutcomeUnknown, "order %s", req.OrderID)
		}
		return nil, err
	}
	return r, nil
}
