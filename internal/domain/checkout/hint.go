package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrHintNotFound is returned when no coupon hint is stored for a cart.
var ErrHintNotFound = errors.New("coupon hint not found")

// Hint remembers which coupon a customer applied to a cart. It is a cache for
// display only: every use revalidates the code against live data.
type Hint struct {
	CartID         string
	ActorKey       string
	Code           string
	Description    string
	DiscountAmount decimal.Decimal
	AppliedAt      time.Time
}

// HintStore keeps hints keyed by cart and actor.
type HintStore interface {
	Get(ctx context.Context, cartID, actorKey string) (*Hint, error)
	Put(ctx context.Context, h *Hint, ttl time.Duration) error
	Delete(ctx context.Context, cartID, actorKey string) error
}

// boundTo reports whether the hint belongs to cartID and actorKey.
func (h *Hint) boundTo(cartID, actorKey string) bool {
	return h.CartID == cartID && h.ActorKey == actorKey
}
