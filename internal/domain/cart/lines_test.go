package cart

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/footwear-cart/internal/domain/money"
)

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

func TestCart_AddLine(t *testing.T) {
	c := New("c1", "", time.Now())
	newID := sequentialIDs("line-")

	require.NoError(t, c.AddLine("v1", 2, newID))
	require.NoError(t, c.AddLine("v2", 1, newID))
	require.NoError(t, c.AddLine("v1", 3, newID))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, "line-1", c.Lines[0].ID)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	assert.Equal(t, "v2", c.Lines[1].VariantID)

	require.ErrorIs(t, c.AddLine("v3", 0, newID), money.ErrInvalidQuantity)
	require.ErrorIs(t, c.AddLine("v3", -1, newID), money.ErrInvalidQuantity)
	assert.Len(t, c.Lines, 2)
}

func TestCart_AddLineQuantityCap(t *testing.T) {
	c := New("c1", "", time.Now())
	newID := sequentialIDs("line-")

	require.NoError(t, c.AddLine("v1", money.MaxQuantity, newID))
	require.ErrorIs(t, c.AddLine("v1", 1, newID), money.ErrInvalidQuantity)
	require.ErrorIs(t, c.AddLine("v2", money.MaxQuantity+1, newID), money.ErrInvalidQuantity)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, money.MaxQuantity, c.Lines[0].Quantity)

	require.ErrorIs(t, c.UpdateLine("line-1", money.MaxQuantity+1), money.ErrInvalidQuantity)
	assert.Equal(t, money.MaxQuantity, c.Lines[0].Quantity)
}

func TestCart_UpdateLine(t *testing.T) {
	tests := []struct {
		name     string
		lineID   string
		quantity int
		wantErr  error
		wantQty  map[string]int
	}{
		{
			name:     "positive overwrites",
			lineID:   "l1",
			quantity: 7,
			wantQty:  map[string]int{"l1": 7, "l2": 1},
		},
		{
			name:     "zero deletes",
			lineID:   "l1",
			quantity: 0,
			wantQty:  map[string]int{"l2": 1},
		},
		{
			name:     "negative rejected",
			lineID:   "l1",
			quantity: -2,
			wantErr:  money.ErrInvalidQuantity,
			wantQty:  map[string]int{"l1": 2, "l2": 1},
		},
		{
			name:     "unknown line",
			lineID:   "nope",
			quantity: 3,
			wantErr:  ErrLineNotFound,
			wantQty:  map[string]int{"l1": 2, "l2": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cart{Lines: []Line{
				{ID: "l1", VariantID: "v1", Quantity: 2},
				{ID: "l2", VariantID: "v2", Quantity: 1},
			}}

			err := c.UpdateLine(tt.lineID, tt.quantity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			got := make(map[string]int, len(c.Lines))
			for _, l := range c.Lines {
				got[l.ID] = l.Quantity
			}
			assert.Equal(t, tt.wantQty, got)
		})
	}
}

func TestCart_RemoveLines(t *testing.T) {
	c := &Cart{Lines: []Line{
		{ID: "l1", VariantID: "v1", Quantity: 1},
		{ID: "l2", VariantID: "v2", Quantity: 1},
		{ID: "l3", VariantID: "v3", Quantity: 1},
	}}

	assert.Equal(t, 2, c.RemoveLines([]string{"l3", "unknown", "l1"}))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "l2", c.Lines[0].ID)

	assert.Zero(t, c.RemoveLines(nil))
	assert.Zero(t, c.RemoveLines([]string{"missing"}))
	assert.Len(t, c.Lines, 1)
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := &Cart{ID: "c1", Lines: []Line{{ID: "l1", VariantID: "v1", Quantity: 1}}}
	cp := c.Clone()
	cp.Lines[0].Quantity = 9

	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestCart_VariantIDs(t *testing.T) {
	c := &Cart{Lines: []Line{
		{ID: "l1", VariantID: "v2"},
		{ID: "l2", VariantID: "v1"},
		{ID: "l3", VariantID: "v2"},
	}}
	assert.Equal(t, []string{"v2", "v1"}, c.VariantIDs())
}
