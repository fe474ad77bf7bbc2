package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

var (
	_ coupon.Repository = (*CouponStore)(nil)
	_ coupon.Ledger     = (*CouponStore)(nil)
)

// CouponStore holds coupons and their redemption ledger. One mutex guards
// both so a commit is atomic with respect to every other call.
type CouponStore struct {
	mu          sync.Mutex
	byCode      map[string]*coupon.Coupon
	byID        map[string]*coupon.Coupon
	redemptions map[string]*coupon.Redemption // by order id
	now         func() time.Time
}

// NewCouponStore returns an empty CouponStore.
func NewCouponStore() *CouponStore {
	return &CouponStore{
		byCode:      make(map[string]*coupon.Coupon),
		byID:        make(map[string]*coupon.Coupon),
		redemptions: make(map[string]*coupon.Redemption),
		now:         time.Now,
	}
}

// Put inserts or replaces a coupon. The code is normalized and an id is
// assigned when missing.
func (s *CouponStore) Put(c coupon.Coupon) *coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = coupon.NormalizeCode(c.Code)
	stored := c
	s.byCode[c.Code] = &stored
	s.byID[c.ID] = &stored
	out := stored
	return &out
}

func (s *CouponStore) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byCode[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *CouponStore) CountRedemptions(_ context.Context, couponID, actorKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(couponID, actorKey), nil
}

func (s *CouponStore) countLocked(couponID, actorKey string) int {
	n := 0
	for _, r := range s.redemptions {
		if r.CouponID == couponID && r.ActorKey == actorKey {
			n++
		}
	}
	return n
}

// Commit records a redemption. It mirrors the SQL ledger: replay by order id
// first, then the conditional increment, then the per-actor cap.
func (s *CouponStore) Commit(ctx context.Context, req coupon.CommitRequest) (*coupon.Redemption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.redemptions[req.OrderID]; ok {
		if prior.CouponID != req.CouponID {
			return nil, errors.Wrapf(coupon.ErrIdempotencyMismatch, "order %s", req.OrderID)
		}
		out := *prior
		out.Replayed = true
		return &out, nil
	}

	c, ok := s.byID[req.CouponID]
	if !ok {
		return nil, coupon.Reject(coupon.ErrNotFound)
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return nil, coupon.Conflict(coupon.ErrGlobalLimitReached)
	}
	if c.MaxUsesPerUser != nil && s.countLocked(c.ID, req.ActorKey) >= *c.MaxUsesPerUser {
		return nil, coupon.Conflict(coupon.ErrPerUserLimitReached)
	}

	c.UsedCount++
	r := &coupon.Redemption{
		ID:             uuid.NewString(),
		CouponID:       req.CouponID,
		ActorKey:       req.ActorKey,
		OrderID:        req.OrderID,
		DiscountAmount: req.DiscountAmount,
		RedeemedAt:     s.now(),
	}
	s.redemptions[req.OrderID] = r
	out := *r
	return &out, nil
}

func (s *CouponStore) MergeActors(_ context.Context, fromKey, toKey string) (int, error) {
	if fromKey == toKey {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.redemptions {
		if r.ActorKey == fromKey {
			r.ActorKey = toKey
			n++
		}
	}
	return n, nil
}

// UsedCount returns the stored used count of a coupon.
func (s *CouponStore) UsedCount(couponID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[couponID]; ok {
		return c.UsedCount
	}
	return 0
}
