package memory

import (
	"context"
	"sync"

	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

var _ checkout.OrderRepository = (*OrderStore)(nil)

// OrderStore keeps confirmed orders by id.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]checkout.Order
}

// NewOrderStore returns an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]checkout.Order)}
}

func (s *OrderStore) Create(_ context.Context, o *checkout.Order) (*checkout.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.orders[o.ID]; ok {
		return &existing, false, nil
	}
	s.orders[o.ID] = *o
	out := *o
	return &out, true, nil
}

func (s *OrderStore) Get(_ context.Context, id string) (*checkout.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, checkout.ErrOrderNotFound
	}
	return &o, nil
}
