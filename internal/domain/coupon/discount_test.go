package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal decimal.Decimal
		currency string
		want     decimal.Decimal
		wantFree bool
		wantErr  bool
	}{
		{
			name:     "percentage",
			coupon:   &Coupon{Type: DiscountPercentage, Value: d("20")},
			subtotal: d("10000"),
			want:     d("2000"),
		},
		{
			name:     "percentage rounds half up once",
			coupon:   &Coupon{Type: DiscountPercentage, Value: d("15")},
			subtotal: d("33.30"),
			want:     d("5.00"),
		},
		{
			name:     "percentage over 100 clamps",
			coupon:   &Coupon{Type: DiscountPercentage, Value: d("150")},
			subtotal: d("800"),
			want:     d("800"),
		},
		{
			name:     "fixed under subtotal",
			coupon:   &Coupon{Type: DiscountFixed, Value: d("2000")},
			subtotal: d("10000"),
			want:     d("2000"),
		},
		{
			name:     "fixed over subtotal clamps",
			coupon:   &Coupon{Type: DiscountFixed, Value: d("2000")},
			subtotal: d("1500"),
			want:     d("1500"),
		},
		{
			name:     "fixed on empty cart",
			coupon:   &Coupon{Type: DiscountFixed, Value: d("2000")},
			subtotal: decimal.Zero,
			want:     decimal.Zero,
		},
		{
			name:     "negative value floors",
			coupon:   &Coupon{Type: DiscountFixed, Value: d("-50")},
			subtotal: d("100"),
			want:     decimal.Zero,
		},
		{
			name:     "free shipping",
			coupon:   &Coupon{Type: DiscountFreeShipping, Value: d("99")},
			subtotal: d("100"),
			want:     decimal.Zero,
			wantFree: true,
		},
		{
			name:     "zero minor unit currency",
			coupon:   &Coupon{Type: DiscountPercentage, Value: d("10")},
			subtotal: d("1005"),
			currency: "JPY",
			want:     d("101"),
		},
		{
			name:     "unknown type",
			coupon:   &Coupon{Type: "free_lowest", Value: d("1")},
			subtotal: d("100"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			currency := tt.currency
			if currency == "" {
				currency = "NGN"
			}
			got, err := Resolve(tt.coupon, tt.subtotal, currency)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Amount), "expected %s, got %s", tt.want, got.Amount)
			assert.Equal(t, tt.wantFree, got.FreeShipping)
			assert.False(t, got.Amount.IsNegative())
			assert.True(t, got.Amount.LessThanOrEqual(tt.subtotal))
		})
	}
}

func TestDiscountType_Valid(t *testing.T) {
	assert.True(t, DiscountPercentage.Valid())
	assert.True(t, DiscountFixed.Valid())
	assert.True(t, DiscountFreeShipping.Valid())
	assert.False(t, DiscountType("bogo").Valid())
}
