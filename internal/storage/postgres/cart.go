package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/footwear-cart/internal/domain/cart"
)

var _ cart.Store = (*CartRepository)(nil)

const (
	insertCart = `INSERT INTO carts (id, currency_code, total_quantity, subtotal_amount, total_tax_amount, total_amount, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectCart = `SELECT id, currency_code, total_quantity, subtotal_amount, total_tax_amount, total_amount,
    order_id, checked_out_at, created_at, updated_at
FROM carts WHERE id = $1`

	selectCartForUpdate = selectCart + ` FOR UPDATE`

	selectCartLines = `SELECT id, product_variant_id, quantity FROM cart_lines WHERE cart_id = $1 ORDER BY position`

	updateCart = `UPDATE carts SET total_quantity = $2, subtotal_amount = $3, total_tax_amount = $4, total_amount = $5,
    order_id = $6, checked_out_at = $7, updated_at = $8
WHERE id = $1`

	deleteCartLines = `DELETE FROM cart_lines WHERE cart_id = $1`

	insertCartLine = `INSERT INTO cart_lines (id, cart_id, product_variant_id, quantity, position) VALUES ($1, $2, $3, $4, $5)`
)

// CartRepository persists carts and their lines.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Create inserts an empty or pre-filled cart.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		t := c.Totals
		if _, err := tx.Exec(ctx, insertCart,
			c.ID, c.CurrencyCode, t.TotalQuantity, t.Subtotal, t.Tax, t.Total, c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("inserting cart %q: %w", c.ID, err)
		}
		return writeLines(ctx, tx, c)
	})
}

// Get returns the cart with its lines in insertion order.
func (r *CartRepository) Get(ctx context.Context, id string) (*cart.Cart, error) {
	if uuid.Validate(id) != nil {
		return nil, cart.ErrNotFound
	}
	return loadCart(ctx, r.pool, selectCart, id)
}

// Update locks the cart row with SELECT ... FOR UPDATE, runs fn and writes
// the result back in the same transaction.
func (r *CartRepository) Update(ctx context.Context, id string, fn func(ctx context.Context, c *cart.Cart) error) (*cart.Cart, error) {
	if uuid.Validate(id) != nil {
		return nil, cart.ErrNotFound
	}

	var out *cart.Cart
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := loadCart(ctx, tx, selectCartForUpdate, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, c); err != nil {
			return err
		}

		t := c.Totals
		if _, err := tx.Exec(ctx, updateCart,
			c.ID, t.TotalQuantity, t.Subtotal, t.Tax, t.Total, c.OrderID, c.CheckedOutAt, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("updating cart %q: %w", id, err)
		}
		if _, err := tx.Exec(ctx, deleteCartLines, c.ID); err != nil {
			return fmt.Errorf("clearing cart %q lines: %w", id, err)
		}
		if err := writeLines(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadCart(ctx context.Context, q querier, query, id string) (*cart.Cart, error) {
	rows, _ := q.Query(ctx, query, id)
	c, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (*cart.Cart, error) {
		var c cart.Cart
		err := row.Scan(&c.ID, &c.CurrencyCode, &c.Totals.TotalQuantity, &c.Totals.Subtotal,
			&c.Totals.Tax, &c.Totals.Total, &c.OrderID, &c.CheckedOutAt, &c.CreatedAt, &c.UpdatedAt)
		return &c, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}

	rows, _ = q.Query(ctx, selectCartLines, id)
	c.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(&l.ID, &l.VariantID, &l.Quantity)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting cart %q lines: %w", id, err)
	}
	return c, nil
}

func writeLines(ctx context.Context, tx pgx.Tx, c *cart.Cart) error {
	if len(c.Lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, l := range c.Lines {
		batch.Queue(insertCartLine, l.ID, c.ID, l.VariantID, l.Quantity, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing cart %q lines: %w", c.ID, err)
	}
	return nil
}
