package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/footwear-cart/internal/domain/checkout"
)

var _ checkout.OrderRepository = (*OrderRepository)(nil)

const (
	orderColumns = `id, cart_id, actor_key, currency_code, subtotal_amount, discount_amount, total_amount,
    coupon_code, free_shipping, created_at`

	insertOrder = `INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING
RETURNING ` + orderColumns

	getOrderByID = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
)

// OrderRepository persists confirmed orders.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts o. When the id is already taken the stored order is returned
// with created set to false.
func (r *OrderRepository) Create(ctx context.Context, o *checkout.Order) (*checkout.Order, bool, error) {
	rows, _ := r.pool.Query(ctx, insertOrder,
		o.ID, o.CartID, o.ActorKey, o.CurrencyCode, o.Subtotal, o.Discount, o.Total,
		o.CouponCode, o.FreeShipping, o.CreatedAt,
	)
	inserted, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, false, fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	if len(inserted) == 1 {
		return &inserted[0], true, nil
	}

	existing, err := r.Get(ctx, o.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns the order or checkout.ErrOrderNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*checkout.Order, error) {
	rows, _ := r.pool.Query(ctx, getOrderByID, id)
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var o checkout.Order
	err := row.Scan(&o.ID, &o.CartID, &o.ActorKey, &o.CurrencyCode, &o.Subtotal, &o.Discount, &o.Total,
		&o.CouponCode, &o.FreeShipping, &o.CreatedAt)
	return o, err
}
