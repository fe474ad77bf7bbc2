package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/footwear-cart/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

const (
	couponColumns = `id, code, description, discount_type, discount_value, min_order_value, max_uses, used_count,
    max_uses_per_user, requires_login, is_active, start_date, expiry_date, created_at, updated_at`

	getCouponByCode = `SELECT ` + couponColumns + ` FROM coupons WHERE code = UPPER($1)`

	upsertCoupon = `INSERT INTO coupons (id, code, description, discount_type, discount_value, min_order_value, max_uses,
    max_uses_per_user, requires_login, is_active, start_date, expiry_date)
VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (code) DO UPDATE SET
    description = EXCLUDED.description,
    discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    min_order_value = EXCLUDED.min_order_value,
    max_uses = EXCLUDED.max_uses,
    max_uses_per_user = EXCLUDED.max_uses_per_user,
    requires_login = EXCLUDED.requires_login,
    is_active = EXCLUDED.is_active,
    start_date = EXCLUDED.start_date,
    expiry_date = EXCLUDED.expiry_date,
    updated_at = NOW()`

	listCouponCodes = `SELECT code FROM coupons`
)

var couponCopyColumns = []string{
	"id", "code", "description", "discount_type", "discount_value", "min_order_value", "max_uses",
	"max_uses_per_user", "requires_login", "is_active", "start_date", "expiry_date",
}

// CouponRepository reads and writes coupon rules.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by code regardless of state. The validator
// decides whether an inactive or expired coupon applies.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, _ := r.pool.Query(ctx, getCouponByCode, code)
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Upsert inserts a coupon or updates the rule of an existing code. The used
// count is never written here.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.pool.Exec(ctx, upsertCoupon, couponArgs(c)...); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// CopyIn bulk-inserts new coupons with the COPY protocol.
func (r *CouponRepository) CopyIn(ctx context.Context, coupons []coupon.Coupon) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"coupons"}, couponCopyColumns,
		pgx.CopyFromSlice(len(coupons), func(i int) ([]any, error) {
			c := &coupons[i]
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			c.Code = coupon.NormalizeCode(c.Code)
			return couponArgs(c), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copying coupons: %w", err)
	}
	return n, nil
}

// ListCodes returns every stored code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, _ := r.pool.Query(ctx, listCouponCodes)
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return codes, nil
}

func couponArgs(c *coupon.Coupon) []any {
	return []any{
		c.ID, c.Code, c.Description, string(c.Type), c.Value, c.MinOrderValue, c.MaxUses,
		c.MaxUsesPerUser, c.RequiresLogin, c.IsActive, c.StartDate, c.ExpiryDate,
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.Value, &c.MinOrderValue, &c.MaxUses, &c.UsedCount,
		&c.MaxUsesPerUser, &c.RequiresLogin, &c.IsActive, &c.StartDate, &c.ExpiryDate, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Type = coupon.DiscountType(discountType)
	return c, err
}
