package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// Discount is the resolved effect of a coupon on a subtotal.
type Discount struct {
	Amount       decimal.Decimal
	FreeShipping bool
	Description  string
}

// Resolve computes the discount c grants on subtotal. The amount is always
// within [0, subtotal] and rounded once to the currency's minor unit.
func Resolve(c *Coupon, subtotal decimal.Decimal, currency string) (Discount, error) {
	subtotal = money.ClampNonNegative(subtotal)

	var amount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(c.Value, subtotal)
	case DiscountFreeShipping:
		return Discount{
			Amount:       decimal.Zero,
			FreeShipping: true,
			Description:  c.Description,
		}, nil
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", c.Type)
	}

	return Discount{
		Amount:      money.Round(money.Clamp(amount, decimal.Zero, subtotal), currency),
		Description: c.Description,
	}, nil
}
