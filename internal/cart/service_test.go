package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karigari/order-engine/internal/catalog"
)

type memRepo struct {
	mu    sync.Mutex
	items map[string][]Item
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string][]Item)}
}

func (m *memRepo) Items(_ context.Context, userID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.items[userID]...), nil
}

func (m *memRepo) Upsert(_ context.Context, userID string, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[userID] {
		if it.ProductID == item.ProductID {
			m.items[userID][i] = item
			return nil
		}
	}
	m.items[userID] = append(m.items[userID], item)
	return nil
}

func (m *memRepo) Delete(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items[userID]
	for i, it := range items {
		if it.ProductID == productID {
			m.items[userID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

// memCatalog serves only the read half of the port; the cart never writes stock.
type memCatalog struct {
	products map[string]*catalog.Product
}

func (m *memCatalog) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductUnavailable
	}
	cp := *p
	return &cp, nil
}

func (m *memCatalog) FindActiveByIDs(_ context.Context, ids []string) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCatalog) ConditionalDecrement(context.Context, string, int, string) (bool, error) {
	panic("cart must not write stock")
}

func (m *memCatalog) ReleaseReservation(context.Context, string, string) (int, error) {
	panic("cart must not write stock")
}

func newFixture(products ...*catalog.Product) (*Service, *memRepo) {
	mc := &memCatalog{products: make(map[string]*catalog.Product)}
	for _, p := range products {
		mc.products[p.ID] = p
	}
	repo := newMemRepo()
	return NewService(repo, mc), repo
}

func pot(stock int) *catalog.Product {
	return &catalog.Product{
		ID:       "p1",
		Name:     "Clay Pot",
		Price:    600,
		Stock:    stock,
		Images:   []string{"https://img.example/pot.jpg"},
		IsActive: true,
	}
}

func TestAddMergesQuantities(t *testing.T) {
	ctx := context.Background()
	svc, repo := newFixture(pot(10))

	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))
	require.NoError(t, svc.Add(ctx, "u1", "p1", 3))

	items, _ := repo.Items(ctx, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddEnforcesCapOnMergedQuantity(t *testing.T) {
	ctx := context.Background()
	svc, repo := newFixture(pot(50))

	require.NoError(t, svc.Add(ctx, "u1", "p1", 8))
	err := svc.Add(ctx, "u1", "p1", 3)
	assert.ErrorIs(t, err, ErrQuantityCapExceeded)

	// The existing line is untouched by the rejected add.
	items, _ := repo.Items(ctx, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 8, items[0].Quantity)
}

func TestAddChecksStockAgainstMergedQuantity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(pot(4))

	require.NoError(t, svc.Add(ctx, "u1", "p1", 3))
	err := svc.Add(ctx, "u1", "p1", 2)

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Clay Pot", stockErr.Product)
	assert.Equal(t, 4, stockErr.Available)
}

func TestAddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	inactive := pot(5)
	inactive.IsActive = false
	svc, _ := newFixture(inactive)

	assert.ErrorIs(t, svc.Add(ctx, "u1", "p1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.Add(ctx, "u1", "p1", -1), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.Add(ctx, "u1", "missing", 1), catalog.ErrProductUnavailable)
	assert.ErrorIs(t, svc.Add(ctx, "u1", "p1", 1), catalog.ErrProductUnavailable)
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	svc, repo := newFixture(pot(10))
	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))

	require.NoError(t, svc.UpdateQuantity(ctx, "u1", "p1", 7))
	items, _ := repo.Items(ctx, "u1")
	assert.Equal(t, 7, items[0].Quantity)

	// Zero removes the line.
	require.NoError(t, svc.UpdateQuantity(ctx, "u1", "p1", 0))
	items, _ = repo.Items(ctx, "u1")
	assert.Empty(t, items)

	// Updating an absent line fails, even with a valid quantity.
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", "p1", 3), ErrItemNotFound)
}

func TestUpdateQuantityValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(pot(5))
	require.NoError(t, svc.Add(ctx, "u1", "p1", 1))

	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", "p1", -1), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", "p1", 11), ErrQuantityCapExceeded)

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, svc.UpdateQuantity(ctx, "u1", "p1", 8), &stockErr)
	assert.Equal(t, 5, stockErr.Available)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(pot(5))
	require.NoError(t, svc.Add(ctx, "u1", "p1", 1))

	require.NoError(t, svc.Remove(ctx, "u1", "p1"))
	assert.ErrorIs(t, svc.Remove(ctx, "u1", "p1"), ErrItemNotFound)
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newFixture(pot(5))
	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))

	require.NoError(t, svc.Clear(ctx, "u1"))
	require.NoError(t, svc.Clear(ctx, "u1"))

	items, _ := repo.Items(ctx, "u1")
	assert.Empty(t, items)
}

func TestReadJoinsLiveProductData(t *testing.T) {
	ctx := context.Background()
	scarf := &catalog.Product{ID: "p2", Name: "Silk Scarf", Price: 250, Stock: 3, IsActive: true}
	svc, _ := newFixture(pot(10), scarf)

	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))
	require.NoError(t, svc.Add(ctx, "u1", "p2", 1))

	view, err := svc.Read(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(1450), view.Total)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, int64(1200), view.Items[0].LineTotal)
	assert.Equal(t, "https://img.example/pot.jpg", view.Items[0].Image)
	assert.Equal(t, 10, view.Items[0].Stock)
}

func TestReadFiltersInactiveButKeepsLine(t *testing.T) {
	ctx := context.Background()
	p := pot(10)
	svc, repo := newFixture(p)
	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))

	p.IsActive = false
	view, err := svc.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)

	// The stored line survives and reappears on reactivation.
	items, _ := repo.Items(ctx, "u1")
	require.Len(t, items, 1)

	p.IsActive = true
	view, err = svc.Read(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestReadEmptyCart(t *testing.T) {
	svc, _ := newFixture(pot(5))

	view, err := svc.Read(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)
	assert.Zero(t, view.ItemCount)
}
