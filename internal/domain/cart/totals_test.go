package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeTotals(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"sandal": d("4500"),
		"loafer": d("12999.99"),
		"strap":  d("0.335"),
	}

	tests := []struct {
		name         string
		lines        []Line
		wantSubtotal decimal.Decimal
		wantQty      int
		wantErr      error
	}{
		{
			name:         "empty cart",
			wantSubtotal: decimal.Zero,
		},
		{
			name: "multiple lines",
			lines: []Line{
				{ID: "l1", VariantID: "sandal", Quantity: 2},
				{ID: "l2", VariantID: "loafer", Quantity: 1},
			},
			wantSubtotal: d("21999.99"),
			wantQty:      3,
		},
		{
			name: "rounded once at the end",
			lines: []Line{
				{ID: "l1", VariantID: "strap", Quantity: 3},
			},
			wantSubtotal: d("1.01"),
			wantQty:      3,
		},
		{
			name: "missing price",
			lines: []Line{
				{ID: "l1", VariantID: "ghost", Quantity: 1},
			},
			wantErr: ErrVariantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, lineTotals, err := ComputeTotals(tt.lines, prices, "NGN")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var ve *VariantError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "ghost", ve.VariantID)
				return
			}

			require.NoError(t, err)
			require.Len(t, lineTotals, len(tt.lines))
			assert.True(t, tt.wantSubtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.wantSubtotal.Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Tax.IsZero())
			assert.True(t, got.Discount.IsZero())
			assert.Equal(t, tt.wantQty, got.TotalQuantity)
		})
	}
}

func TestComputeTotals_Idempotent(t *testing.T) {
	lines := []Line{
		{ID: "l1", VariantID: "a", Quantity: 3},
		{ID: "l2", VariantID: "b", Quantity: 1},
	}
	prices := map[string]decimal.Decimal{"a": d("3333.33"), "b": d("0.01")}

	first, firstLines, err := ComputeTotals(lines, prices, "NGN")
	require.NoError(t, err)
	second, secondLines, err := ComputeTotals(lines, prices, "NGN")
	require.NoError(t, err)

	assert.Equal(t, first.TotalQuantity, second.TotalQuantity)
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Total.Equal(second.Total))
	for i := range firstLines {
		assert.True(t, firstLines[i].Equal(secondLines[i]))
	}
}

func TestTotals_WithDiscount(t *testing.T) {
	tests := []struct {
		name         string
		subtotal     decimal.Decimal
		discount     decimal.Decimal
		wantDiscount decimal.Decimal
		wantTotal    decimal.Decimal
	}{
		{name: "partial", subtotal: d("10000"), discount: d("2000"), wantDiscount: d("2000"), wantTotal: d("8000")},
		{name: "over subtotal floors at zero", subtotal: d("1500"), discount: d("2000"), wantDiscount: d("2000"), wantTotal: d("0")},
		{name: "negative discount ignored", subtotal: d("100"), discount: d("-5"), wantDiscount: d("0"), wantTotal: d("100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Totals{Subtotal: tt.subtotal}.WithDiscount(tt.discount, "NGN")
			assert.True(t, tt.wantDiscount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.wantTotal.Equal(got.Total), "total %s", got.Total)
			assert.False(t, got.Total.IsNegative())
		})
	}
}

func TestCart_Recompute(t *testing.T) {
	c := &Cart{CurrencyCode: "NGN", Lines: []Line{
		{ID: "l1", VariantID: "a", Quantity: 2},
	}}
	require.NoError(t, c.Recompute(map[string]decimal.Decimal{"a": d("2500")}))

	assert.True(t, d("5000").Equal(c.Lines[0].Total))
	assert.True(t, d("5000").Equal(c.Totals.Total))
	assert.Equal(t, 2, c.Totals.TotalQuantity)
}
