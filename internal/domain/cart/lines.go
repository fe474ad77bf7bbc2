package cart

import "github.com/xenking/footwear-cart/internal/domain/money"

// AddLine adds quantity of variantID. An existing line for the variant has the
// quantity summed into it; otherwise a new line with newID() is appended. The
// summed quantity must stay within money.MaxQuantity.
func (c *Cart) AddLine(variantID string, quantity int, newID func() string) error {
	if err := money.ValidateQuantity(quantity); err != nil {
		return err
	}
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			sum := c.Lines[i].Quantity + quantity
			if err := money.ValidateQuantity(sum); err != nil {
				return err
			}
			c.Lines[i].Quantity = sum
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{
		ID:        newID(),
		VariantID: variantID,
		Quantity:  quantity,
	})
	return nil
}

// UpdateLine overwrites the quantity of a line. Zero deletes the line.
// Unknown ids return ErrLineNotFound.
func (c *Cart) UpdateLine(lineID string, quantity int) error {
	if quantity < 0 || quantity > money.MaxQuantity {
		return money.ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].ID != lineID {
			continue
		}
		if quantity == 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
		c.Lines[i].Quantity = quantity
		return nil
	}
	return ErrLineNotFound
}

// RemoveLines deletes every line whose id is in lineIDs and reports how many
// were removed. Unknown ids are ignored.
func (c *Cart) RemoveLines(lineIDs []string) int {
	if len(lineIDs) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = struct{}{}
	}

	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if _, ok := drop[l.ID]; ok {
			continue
		}
		kept = append(kept, l)
	}
	removed := len(c.Lines) - len(kept)
	c.Lines = kept
	return removed
}
