package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

var _ coupon.Ledger = (*LedgerRepository)(nil)

const (
	redemptionColumns = `id, coupon_id, actor_key, order_id, discount_amount, redeemed_at`

	insertRedemption = `INSERT INTO coupon_redemptions (` + redemptionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (order_id) DO NOTHING
RETURNING ` + redemptionColumns

	getRedemptionByOrder = `SELECT ` + redemptionColumns + ` FROM coupon_redemptions WHERE order_id = $1`

	// Taking the row lock here serializes every commit of one coupon.
	incrementCouponUse = `UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
RETURNING max_uses_per_user`

	couponExists = `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`

	countActorRedemptions = `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND actor_key = $2`

	mergeActorRedemptions = `UPDATE coupon_redemptions SET actor_key = $2 WHERE actor_key = $1`
)

const pgForeignKeyViolation = "23503"

// LedgerRepository is the redemption ledger. It is the only writer of
// coupons.used_count.
type LedgerRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool, now: time.Now}
}

// Commit records req in one transaction: idempotent insert by order id,
// conditional increment of used_count, then the per-actor cap check under the
// coupon row lock.
func (r *LedgerRepository) Commit(ctx context.Context, req coupon.CommitRequest) (*coupon.Redemption, error) {
	if uuid.Validate(req.CouponID) != nil {
		return nil, coupon.Reject(coupon.ErrNotFound)
	}

	var out *coupon.Redemption
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, _ := tx.Query(ctx, insertRedemption,
			uuid.NewString(), req.CouponID, req.ActorKey, req.OrderID, req.DiscountAmount, r.now(),
		)
		inserted, err := pgx.CollectRows(rows, scanRedemption)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return coupon.Reject(coupon.ErrNotFound)
			}
			return fmt.Errorf("inserting redemption for order %q: %w", req.OrderID, err)
		}

		if len(inserted) == 0 {
			prior, err := r.prior(ctx, tx, req)
			if err != nil {
				return err
			}
			out = prior
			return nil
		}

		rows, _ = tx.Query(ctx, incrementCouponUse, req.CouponID)
		perUser, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[*int])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.missingOrExhausted(ctx, tx, req.CouponID)
			}
			return fmt.Errorf("incrementing coupon %q: %w", req.CouponID, err)
		}

		if perUser != nil {
			var used int
			if err := tx.QueryRow(ctx, countActorRedemptions, req.CouponID, req.ActorKey).Scan(&used); err != nil {
				return fmt.Errorf("counting redemptions: %w", err)
			}
			if used > *perUser {
				return coupon.Conflict(coupon.ErrPerUserLimitReached)
			}
		}

		out = &inserted[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LedgerRepository) prior(ctx context.Context, tx pgx.Tx, req coupon.CommitRequest) (*coupon.Redemption, error) {
	rows, _ := tx.Query(ctx, getRedemptionByOrder, req.OrderID)
	prior, err := pgx.CollectExactlyOneRow(rows, scanRedemption)
	if err != nil {
		return nil, fmt.Errorf("getting redemption for order %q: %w", req.OrderID, err)
	}
	if prior.CouponID != req.CouponID {
		return nil, errors.Wrapf(coupon.ErrIdempotencyMismatch, "order %s", req.OrderID)
	}
	prior.Replayed = true
	return &prior, nil
}

func (r *LedgerRepository) missingOrExhausted(ctx context.Context, tx pgx.Tx, couponID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, couponExists, couponID).Scan(&exists); err != nil {
		return fmt.Errorf("checking coupon %q: %w", couponID, err)
	}
	if !exists {
		return coupon.Reject(coupon.ErrNotFound)
	}
	return coupon.Conflict(coupon.ErrGlobalLimitReached)
}

// CountRedemptions aggregates the ledger rows of one actor for one coupon.
func (r *LedgerRepository) CountRedemptions(ctx context.Context, couponID, actorKey string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countActorRedemptions, couponID, actorKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting redemptions: %w", err)
	}
	return n, nil
}

// MergeActors re-keys fromKey's redemptions to toKey.
func (r *LedgerRepository) MergeActors(ctx context.Context, fromKey, toKey string) (int, error) {
	if fromKey == toKey {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, mergeActorRedemptions, fromKey, toKey)
	if err != nil {
		return 0, fmt.Errorf("merging actor %q into %q: %w", fromKey, toKey, err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRedemption(row pgx.CollectableRow) (coupon.Redemption, error) {
	var r coupon.Redemption
	err := row.Scan(&r.ID, &r.CouponID, &r.ActorKey, &r.OrderID, &r.DiscountAmount, &r.RedeemedAt)
	return r, err
}
