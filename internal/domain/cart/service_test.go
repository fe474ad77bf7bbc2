package cart

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/footwear-cart/internal/domain/catalog"
	"github.com/xenking/footwear-cart/internal/domain/money"
)

// --- Mock implementations ---

type mockStore struct {
	carts     map[string]*Cart
	updateErr error
}

func newMockStore() *mockStore {
	return &mockStore{carts: map[string]*Cart{}}
}

func (m *mockStore) Create(_ context.Context, c *Cart) error {
	m.carts[c.ID] = c.Clone()
	return nil
}

func (m *mockStore) Get(_ context.Context, id string) (*Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *mockStore) Update(ctx context.Context, id string, fn func(ctx context.Context, c *Cart) error) (*Cart, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	c, ok := m.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := c.Clone()
	if err := fn(ctx, work); err != nil {
		return nil, err
	}
	m.carts[id] = work.Clone()
	return work, nil
}

type mockCatalog struct {
	variants map[string]catalog.Variant
	err      error
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.variants[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

func (m *mockCatalog) GetByIDs(_ context.Context, ids []string) ([]catalog.Variant, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]catalog.Variant, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestCatalog() *mockCatalog {
	return &mockCatalog{variants: map[string]catalog.Variant{
		"ankara-42": {ID: "ankara-42", Title: "Ankara Slide 42", Price: d("5000"), CurrencyCode: "NGN", AvailableForSale: true},
		"mule-40":   {ID: "mule-40", Title: "Leather Mule 40", Price: d("12500"), CurrencyCode: "NGN", AvailableForSale: true},
		"sold-out":  {ID: "sold-out", Title: "Sold Out", Price: d("9000"), CurrencyCode: "NGN", AvailableForSale: false},
		"usd-only":  {ID: "usd-only", Title: "Export", Price: d("40"), CurrencyCode: "USD", AvailableForSale: true},
	}}
}

func newTestService(t *testing.T) (*Service, *mockStore, *mockCatalog) {
	t.Helper()
	store := newMockStore()
	cat := newTestCatalog()
	svc := NewService(store, cat, money.DefaultCurrency)
	svc.newID = sequentialIDs("id-")
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, store, cat
}

func TestService_Create(t *testing.T) {
	svc, store, _ := newTestService(t)

	c, err := svc.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "NGN", c.CurrencyCode)
	assert.Empty(t, c.Lines)
	assert.True(t, c.Totals.Total.IsZero())
	assert.Contains(t, store.carts, c.ID)
}

func TestService_AddLine(t *testing.T) {
	tests := []struct {
		name      string
		variantID string
		quantity  int
		wantErr   error
	}{
		{name: "adds line", variantID: "ankara-42", quantity: 2},
		{name: "unknown variant", variantID: "ghost", quantity: 1, wantErr: ErrVariantNotFound},
		{name: "unavailable", variantID: "sold-out", quantity: 1, wantErr: ErrVariantUnavailable},
		{name: "currency mismatch", variantID: "usd-only", quantity: 1, wantErr: ErrCurrencyMismatch},
		{name: "zero quantity", variantID: "ankara-42", quantity: 0, wantErr: money.ErrInvalidQuantity},
		{name: "quantity over cap", variantID: "ankara-42", quantity: money.MaxQuantity + 1, wantErr: money.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			ctx := context.Background()
			c, err := svc.Create(ctx, "NGN")
			require.NoError(t, err)

			got, err := svc.AddLine(ctx, c.ID, tt.variantID, tt.quantity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				assert.Empty(t, store.carts[c.ID].Lines)
				return
			}

			require.NoError(t, err)
			require.Len(t, got.Lines, 1)
			assert.True(t, d("10000").Equal(got.Totals.Subtotal))
			assert.True(t, d("10000").Equal(got.Lines[0].Total))
			assert.Equal(t, 2, got.Totals.TotalQuantity)
			assert.True(t, d("10000").Equal(store.carts[c.ID].Totals.Total), "persisted totals are recomputed")
		})
	}
}

func TestService_UpdateLineZeroRemovesLine(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, c.ID, "ankara-42", 2)
	require.NoError(t, err)
	c, err = svc.AddLine(ctx, c.ID, "mule-40", 1)
	require.NoError(t, err)
	require.Equal(t, 3, c.Totals.TotalQuantity)

	line := c.Lines[0]
	c, err = svc.UpdateLine(ctx, c.ID, line.ID, 0)
	require.NoError(t, err)

	_, ok := c.Line(line.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Totals.TotalQuantity)
	assert.True(t, d("12500").Equal(c.Totals.Subtotal))
}

func TestService_UpdateLineUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)

	_, err = svc.UpdateLine(ctx, c.ID, "missing", 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestService_RemoveLines(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)
	c, err = svc.AddLine(ctx, c.ID, "ankara-42", 1)
	require.NoError(t, err)

	c, err = svc.RemoveLines(ctx, c.ID, []string{c.Lines[0].ID, "unknown"})
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
	assert.True(t, c.Totals.Total.IsZero())
	assert.Zero(t, c.Totals.TotalQuantity)
}

func TestService_AddLineSummedOverCap(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, c.ID, "ankara-42", money.MaxQuantity)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, c.ID, "ankara-42", 1)
	require.ErrorIs(t, err, money.ErrInvalidQuantity)

	stored := store.carts[c.ID]
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, money.MaxQuantity, stored.Lines[0].Quantity)
	assert.Equal(t, money.MaxQuantity, stored.Totals.TotalQuantity)
	assert.True(t, stored.Totals.Subtotal.IsPositive())
}

func TestService_Checkout(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, empty.ID, "order-0")
	require.ErrorIs(t, err, ErrEmpty)
	assert.False(t, store.carts[empty.ID].CheckedOut())

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)
	c, err = svc.AddLine(ctx, c.ID, "ankara-42", 2)
	require.NoError(t, err)
	lineID := c.Lines[0].ID

	got, err := svc.Checkout(ctx, c.ID, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", got.OrderID)
	require.NotNil(t, got.CheckedOutAt)
	assert.True(t, d("10000").Equal(got.Totals.Subtotal))
	assert.Equal(t, "order-1", store.carts[c.ID].OrderID)

	again, err := svc.Checkout(ctx, c.ID, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", again.OrderID)

	_, err = svc.Checkout(ctx, c.ID, "order-2")
	require.ErrorIs(t, err, ErrCheckedOut)

	_, err = svc.AddLine(ctx, c.ID, "mule-40", 1)
	require.ErrorIs(t, err, ErrCheckedOut)
	_, err = svc.UpdateLine(ctx, c.ID, lineID, 5)
	require.ErrorIs(t, err, ErrCheckedOut)
	_, err = svc.RemoveLines(ctx, c.ID, []string{lineID})
	require.ErrorIs(t, err, ErrCheckedOut)

	stored := store.carts[c.ID]
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 2, stored.Lines[0].Quantity)
}

func TestService_GetUsesLivePrices(t *testing.T) {
	svc, store, cat := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, c.ID, "ankara-42", 1)
	require.NoError(t, err)

	v := cat.variants["ankara-42"]
	v.Price = d("6000")
	cat.variants["ankara-42"] = v

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, d("6000").Equal(got.Totals.Total))
	assert.True(t, d("5000").Equal(store.carts[c.ID].Totals.Total), "read does not persist")
}

func TestService_CatalogFailureAbortsMutation(t *testing.T) {
	svc, store, cat := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "")
	require.NoError(t, err)

	cat.err = errors.New("catalog down")
	_, err = svc.AddLine(ctx, c.ID, "ankara-42", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get variant")
	assert.Empty(t, store.carts[c.ID].Lines)
}

func TestService_UnknownCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddLine(context.Background(), "nope", "ankara-42", 1)
	require.ErrorIs(t, err, ErrNotFound)
}
