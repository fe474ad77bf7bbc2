// Package cart owns a customer's in-progress selection of variants and keeps
// its totals consistent with live catalog prices.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

var (
	// ErrNotFound is returned when a cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned by UpdateLine for an unknown line id.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrVariantNotFound is returned when a line references a variant the
	// catalog does not know.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrVariantUnavailable is returned when adding a variant that is not for sale.
	ErrVariantUnavailable = errors.New("variant is not available for sale")
	// ErrCurrencyMismatch is returned when a variant is priced in a currency
	// other than the cart's.
	ErrCurrencyMismatch = errors.New("variant currency does not match cart currency")
	// ErrCheckedOut is returned when mutating or checking out a cart that was
	// already converted into another order.
	ErrCheckedOut = errors.New("cart already checked out")
	// ErrEmpty is returned when checking out a cart with no lines.
	ErrEmpty = errors.New("cart is empty")
)

// VariantError ties a variant failure to the variant that caused it.
type VariantError struct {
	VariantID string
	Err       error
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("variant %s: %s", e.VariantID, e.Err)
}

func (e *VariantError) Unwrap() error {
	return e.Err
}

// Cart is a customer's in-progress collection of lines.
type Cart struct {
	ID           string
	CurrencyCode string
	// Lines keeps insertion order for display. Order is irrelevant to totals.
	Lines     []Line
	Totals    Totals
	// OrderID is set once the cart has been converted into an order.
	OrderID      string
	CheckedOutAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CheckedOut reports whether the cart was converted into an order.
func (c *Cart) CheckedOut() bool {
	return c.OrderID != ""
}

// Line is a single variant selection. Total is derived from the live variant
// price and is never used as a price snapshot.
type Line struct {
	ID        string
	VariantID string
	Quantity  int
	Total     decimal.Decimal
}

// Store persists carts. Update must run fn under an exclusive per-cart lock
// and persist the mutated cart atomically with it; fn's error aborts the unit
// without persisting anything.
type Store interface {
	Create(ctx context.Context, c *Cart) error
	Get(ctx context.Context, id string) (*Cart, error)
	Update(ctx context.Context, id string, fn func(ctx context.Context, c *Cart) error) (*Cart, error)
}

// New returns an empty cart in the given currency.
func New(id, currency string, now time.Time) *Cart {
	return &Cart{
		ID:           id,
		CurrencyCode: money.NormalizeCurrency(currency),
		Totals:       ZeroTotals(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VariantIDs returns the distinct variant ids referenced by the cart's lines.
func (c *Cart) VariantIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	seen := make(map[string]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		if _, ok := seen[l.VariantID]; ok {
			continue
		}
		seen[l.VariantID] = struct{}{}
		ids = append(ids, l.VariantID)
	}
	return ids
}

// Line returns the line with the given id.
func (c *Cart) Line(id string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	if c.CheckedOutAt != nil {
		at := *c.CheckedOutAt
		cp.CheckedOutAt = &at
	}
	return &cp
}
