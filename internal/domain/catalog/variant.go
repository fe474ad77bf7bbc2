// Package catalog describes the read-only view of purchasable variants that the
// pricing engine consumes. Catalog management owns the data.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested variant does not exist.
var ErrNotFound = errors.New("variant not found")

// Variant is a purchasable product configuration (e.g. size and colour) with
// its own live price.
type Variant struct {
	ID               string
	ProductID        string
	Title            string
	Price            decimal.Decimal
	CurrencyCode     string
	AvailableForSale bool
}

// Repository provides price lookups for variants.
type Repository interface {
	// GetByID returns a single variant or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Variant, error)
	// GetByIDs returns the variants matching ids. Missing ids are omitted
	// rather than reported.
	GetByIDs(ctx context.Context, ids []string) ([]Variant, error)
}

// Index maps variant id to variant.
func Index(variants []Variant) map[string]Variant {
	m := make(map[string]Variant, len(variants))
	for _, v := range variants {
		m[v.ID] = v
	}
	return m
}
