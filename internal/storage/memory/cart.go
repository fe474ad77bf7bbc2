// Package memory implements every storage port in process. It backs the
// "memory" storage driver and unit tests. Nothing here performs I/O, so locks
// are never held across a network call.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/footwear-cart/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

type cartEntry struct {
	mu   sync.Mutex
	cart *cart.Cart
}

// CartStore keeps carts in a map. Update serializes per cart.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]*cartEntry
}

// NewCartStore returns an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*cartEntry)}
}

func (s *CartStore) entry(id string) (*cartEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.carts[id]
	return e, ok
}

// Create stores a copy of c.
func (s *CartStore) Create(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.ID]; ok {
		return errors.Errorf("cart %s already exists", c.ID)
	}
	s.carts[c.ID] = &cartEntry{cart: c.Clone()}
	return nil
}

// Get returns a copy of the stored cart.
func (s *CartStore) Get(_ context.Context, id string) (*cart.Cart, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, cart.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Clone(), nil
}

// Update runs fn on a copy of the cart under the cart's lock and stores the
// copy only when fn succeeds.
func (s *CartStore) Update(ctx context.Context, id string, fn func(ctx context.Context, c *cart.Cart) error) (*cart.Cart, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, cart.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.cart.Clone()
	if err := fn(ctx, work); err != nil {
		return nil, err
	}
	e.cart = work.Clone()
	return work, nil
}
