package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned when an order record does not exist.
var ErrOrderNotFound = errors.New("order not found")

// Order is the minimal record written when payment is confirmed.
type Order struct {
	ID           string
	CartID       string
	ActorKey     string
	CurrencyCode string
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	CouponCode   string
	FreeShipping bool
	CreatedAt    time.Time
}

// OrderRepository persists confirmed orders.
type OrderRepository interface {
	// Create stores o unless an order with the same id exists. It returns the
	// stored order and whether this call created it.
	Create(ctx context.Context, o *Order) (*Order, bool, error)
	// Get returns the order or ErrOrderNotFound.
	Get(ctx context.Context, id string) (*Order, error)
}
