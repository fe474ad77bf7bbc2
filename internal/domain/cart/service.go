package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/catalog"
	"github.com/xenking/footwear-cart/internal/domain/money"
)

// Service applies line mutations and keeps totals consistent. Every mutation
// and its recompute run inside a single Store.Update unit, so callers never
// observe a mutated cart whose totals are stale.
type Service struct {
	store    Store
	variants catalog.Repository
	currency string
	newID    func() string
	now      func() time.Time
}

// NewService creates a cart Service. currency is used for carts created
// without an explicit currency.
func NewService(store Store, variants catalog.Repository, currency string) *Service {
	return &Service{
		store:    store,
		variants: variants,
		currency: money.NormalizeCurrency(currency),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Create starts a new empty cart.
func (s *Service) Create(ctx context.Context, currency string) (*Cart, error) {
	if currency == "" {
		currency = s.currency
	}
	c := New(s.newID(), currency, s.now())
	if err := s.store.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// Get returns the cart priced with the current catalog prices. The result is
// a read view; it is not written back.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddLine adds quantity of a variant, summing into an existing line.
func (s *Service) AddLine(ctx context.Context, cartID, variantID string, quantity int) (*Cart, error) {
	if err := money.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(ctx context.Context, c *Cart) error {
		v, err := s.variants.GetByID(ctx, variantID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return &VariantError{VariantID: variantID, Err: ErrVariantNotFound}
			}
			return errors.Wrapf(err, "get variant %s", variantID)
		}
		if !v.AvailableForSale {
			return &VariantError{VariantID: variantID, Err: ErrVariantUnavailable}
		}
		if money.NormalizeCurrency(v.CurrencyCode) != c.CurrencyCode {
			return &VariantError{VariantID: variantID, Err: ErrCurrencyMismatch}
		}
		return c.AddLine(variantID, quantity, s.newID)
	})
}

// UpdateLine overwrites a line's quantity; zero removes the line.
func (s *Service) UpdateLine(ctx context.Context, cartID, lineID string, quantity int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(_ context.Context, c *Cart) error {
		return c.UpdateLine(lineID, quantity)
	})
}

// RemoveLines deletes the given lines, ignoring unknown ids.
func (s *Service) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(_ context.Context, c *Cart) error {
		c.RemoveLines(lineIDs)
		return nil
	})
}

// Checkout converts the cart into orderID under the cart lock and returns it
// priced. Repeating it with the same order id returns the cart again; any other
// order id gets ErrCheckedOut.
func (s *Service) Checkout(ctx context.Context, cartID, orderID string) (*Cart, error) {
	return s.store.Update(ctx, cartID, func(ctx context.Context, c *Cart) error {
		if c.CheckedOut() {
			if c.OrderID != orderID {
				return ErrCheckedOut
			}
			return s.recompute(ctx, c)
		}
		if len(c.Lines) == 0 {
			return ErrEmpty
		}
		if err := s.recompute(ctx, c); err != nil {
			return err
		}
		now := s.now()
		c.OrderID = orderID
		c.CheckedOutAt = &now
		c.UpdatedAt = now
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, cartID string, op func(ctx context.Context, c *Cart) error) (*Cart, error) {
	return s.store.Update(ctx, cartID, func(ctx context.Context, c *Cart) error {
		if c.CheckedOut() {
			return ErrCheckedOut
		}
		if err := op(ctx, c); err != nil {
			return err
		}
		if err := s.recompute(ctx, c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		return nil
	})
}

func (s *Service) recompute(ctx context.Context, c *Cart) error {
	if len(c.Lines) == 0 {
		c.Totals = ZeroTotals()
		return nil
	}
	variants, err := s.variants.GetByIDs(ctx, c.VariantIDs())
	if err != nil {
		return errors.Wrap(err, "get variant prices")
	}
	prices := make(map[string]decimal.Decimal, len(variants))
	for _, v := range variants {
		prices[v.ID] = v.Price
	}
	return c.Recompute(prices)
}
