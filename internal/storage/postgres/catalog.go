package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/footwear-cart/internal/domain/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

const (
	selectVariantColumns = `SELECT id, product_id, title, price_amount, currency_code, available_for_sale FROM product_variants`

	getVariantByID   = selectVariantColumns + ` WHERE id = $1`
	getVariantsByIDs = selectVariantColumns + ` WHERE id = ANY($1) ORDER BY id`

	upsertVariant = `INSERT INTO product_variants (id, product_id, title, price_amount, currency_code, available_for_sale)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    product_id = EXCLUDED.product_id,
    title = EXCLUDED.title,
    price_amount = EXCLUDED.price_amount,
    currency_code = EXCLUDED.currency_code,
    available_for_sale = EXCLUDED.available_for_sale`
)

// CatalogRepository reads product variants.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetByID returns a single variant or catalog.ErrNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, _ := r.pool.Query(ctx, getVariantByID, id)
	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// GetByIDs returns the variants matching ids in a single query.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _ := r.pool.Query(ctx, getVariantsByIDs, ids)
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("getting variants by ids: %w", err)
	}
	return variants, nil
}

// Upsert inserts or updates a variant. Used by seeding.
func (r *CatalogRepository) Upsert(ctx context.Context, v catalog.Variant) error {
	if _, err := r.pool.Exec(ctx, upsertVariant,
		v.ID, v.ProductID, v.Title, v.Price, v.CurrencyCode, v.AvailableForSale,
	); err != nil {
		return fmt.Errorf("upserting variant %q: %w", v.ID, err)
	}
	return nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Title, &v.Price, &v.CurrencyCode, &v.AvailableForSale)
	return v, err
}
