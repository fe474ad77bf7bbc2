package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

// Totals is the priced view of a cart.
//
// Invariant: Total == max(Subtotal-Discount, 0) + Tax + Shipping. Tax and
// Shipping stay zero here: both are quoted after order placement.
type Totals struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	TotalQuantity int
}

// ZeroTotals returns the totals of an empty cart.
func ZeroTotals() Totals {
	return Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
	}
}

// ComputeTotals derives subtotal, quantity and total from lines and the live
// variant prices. It is a pure function: the same input always yields the same
// output. The returned slice holds each line's total in input order.
func ComputeTotals(lines []Line, prices map[string]decimal.Decimal, currency string) (Totals, []decimal.Decimal, error) {
	t := ZeroTotals()
	lineTotals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		price, ok := prices[l.VariantID]
		if !ok {
			return Totals{}, nil, &VariantError{VariantID: l.VariantID, Err: ErrVariantNotFound}
		}
		lineTotals[i] = money.Round(money.LineTotal(price, l.Quantity), currency)
		t.Subtotal = t.Subtotal.Add(money.LineTotal(price, l.Quantity))
		t.TotalQuantity += l.Quantity
	}
	t.Subtotal = money.Round(t.Subtotal, currency)
	return t.WithDiscount(decimal.Zero, currency), lineTotals, nil
}

// WithDiscount returns a copy of t with the discount applied and the total
// recomputed. The total never goes negative.
func (t Totals) WithDiscount(discount decimal.Decimal, currency string) Totals {
	discount = money.Round(money.ClampNonNegative(discount), currency)
	t.Discount = discount
	t.Total = money.Round(
		money.ClampNonNegative(t.Subtotal.Sub(discount)).Add(t.Tax).Add(t.Shipping),
		currency,
	)
	return t
}

// Recompute refreshes every line total and the cart totals from prices.
func (c *Cart) Recompute(prices map[string]decimal.Decimal) error {
	totals, lineTotals, err := ComputeTotals(c.Lines, prices, c.CurrencyCode)
	if err != nil {
		return err
	}
	for i := range c.Lines {
		c.Lines[i].Total = lineTotals[i]
	}
	c.Totals = totals
	return nil
}
