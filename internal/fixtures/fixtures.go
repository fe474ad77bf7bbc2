// Package fixtures holds the storefront demo catalog and launch coupons. The
// seed-db command writes them to PostgreSQL and the memory driver preloads
// them.
package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/catalog"
	"github.com/xenking/footwear-cart/internal/domain/coupon"
	"github.com/xenking/footwear-cart/internal/domain/money"
)

// Variants returns the demo footwear catalog priced in NGN.
func Variants() []catalog.Variant {
	v := func(id, product, title string, price int64, available bool) catalog.Variant {
		return catalog.Variant{
			ID:               id,
			ProductID:        product,
			Title:            title,
			Price:            decimal.NewFromInt(price),
			CurrencyCode:     money.DefaultCurrency,
			AvailableForSale: available,
		}
	}
	return []catalog.Variant{
		v("aso-oke-slide-40-indigo", "aso-oke-slide", "Aso-Oke Slide / 40 / Indigo", 18500, true),
		v("aso-oke-slide-42-indigo", "aso-oke-slide", "Aso-Oke Slide / 42 / Indigo", 18500, true),
		v("aso-oke-slide-44-rust", "aso-oke-slide", "Aso-Oke Slide / 44 / Rust", 18500, false),
		v("adire-mule-39-blue", "adire-mule", "Adire Mule / 39 / Blue", 24000, true),
		v("adire-mule-41-blue", "adire-mule", "Adire Mule / 41 / Blue", 24000, true),
		v("leather-palm-43-tan", "leather-palm", "Leather Palm Sandal / 43 / Tan", 32500, true),
		v("leather-palm-45-black", "leather-palm", "Leather Palm Sandal / 45 / Black", 32500, true),
		v("kente-loafer-42-gold", "kente-loafer", "Kente Loafer / 42 / Gold", 56000, true),
	}
}

// Coupons returns the launch coupons. Dates are relative to now so the demo
// set always contains one live and one expired code.
func Coupons(now time.Time) []coupon.Coupon {
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 6, 0)
	expired := now.AddDate(0, 0, -1)
	one := 1

	return []coupon.Coupon{
		{
			Code:        "SAVE20",
			Description: "20% off your order",
			Type:        coupon.DiscountPercentage,
			Value:       decimal.NewFromInt(20),
			IsActive:    true,
			StartDate:   &start,
			ExpiryDate:  &end,
		},
		{
			Code:           "WELCOME2000",
			Description:    "₦2,000 off your first pair",
			Type:           coupon.DiscountFixed,
			Value:          decimal.NewFromInt(2000),
			MinOrderValue:  decimal.NewNullDecimal(decimal.NewFromInt(10000)),
			MaxUsesPerUser: &one,
			IsActive:       true,
		},
		{
			Code:          "FREESHIP",
			Description:   "Free delivery",
			Type:          coupon.DiscountFreeShipping,
			IsActive:      true,
			RequiresLogin: true,
		},
		{
			Code:        "DETTY2025",
			Description: "December special: 15% off",
			Type:        coupon.DiscountPercentage,
			Value:       decimal.NewFromInt(15),
			IsActive:    true,
			ExpiryDate:  &expired,
		},
	}
}
