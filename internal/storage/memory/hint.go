package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

var _ checkout.HintStore = (*HintStore)(nil)

type hintEntry struct {
	hint    checkout.Hint
	expires time.Time
}

// HintStore keeps coupon hints with a TTL.
type HintStore struct {
	mu    sync.Mutex
	hints map[string]hintEntry
	now   func() time.Time
}

// NewHintStore returns an empty HintStore.
func NewHintStore() *HintStore {
	return &HintStore{hints: make(map[string]hintEntry), now: time.Now}
}

func hintKey(cartID, actorKey string) string {
	return cartID + "|" + actorKey
}

func (s *HintStore) Get(_ context.Context, cartID, actorKey string) (*checkout.Hint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hintKey(cartID, actorKey)
	e, ok := s.hints[key]
	if !ok {
		return nil, checkout.ErrHintNotFound
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.hints, key)
		return nil, checkout.ErrHintNotFound
	}
	h := e.hint
	return &h, nil
}

// Put stores h. A non-positive ttl keeps the hint until deleted.
func (s *HintStore) Put(_ context.Context, h *checkout.Hint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := hintEntry{hint: *h}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.hints[hintKey(h.CartID, h.ActorKey)] = e
	return nil
}

func (s *HintStore) Delete(_ context.Context, cartID, actorKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hints, hintKey(cartID, actorKey))
	return nil
}
