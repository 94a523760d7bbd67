package order

import (
	"context"
	"sort"
	"sync"

	"github.com/karigari/order-engine/internal/cart"
	"github.com/karigari/order-engine/internal/catalog"
	"github.com/karigari/order-engine/internal/events"
)

// In-memory doubles for the store ports. The catalog fake reproduces the
// atomicity contract of the real store: ConditionalDecrement checks and
// decrements under one lock.

type memCatalog struct {
	mu           sync.Mutex
	products     map[string]*catalog.Product
	reservations map[string]int

	// onReserve, when set, runs at the top of ConditionalDecrement. Tests
	// use it to simulate a competitor draining stock between the advisory
	// check and the authoritative reserve.
	onReserve func(productID string)
}

func newMemCatalog(products ...*catalog.Product) *memCatalog {
	m := &memCatalog{
		products:     make(map[string]*catalog.Product),
		reservations: make(map[string]int),
	}
	for _, p := range products {
		cp := *p
		m.products[p.ID] = &cp
	}
	return m
}

func (m *memCatalog) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductUnavailable
	}
	cp := *p
	return &cp, nil
}

func (m *memCatalog) FindActiveByIDs(_ context.Context, ids []string) ([]*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCatalog) ConditionalDecrement(_ context.Context, productID string, qty int, orderNumber string) (bool, error) {
	if m.onReserve != nil {
		m.onReserve(productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || !p.IsActive || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.SalesCount += qty
	m.reservations[orderNumber+"/"+productID] += qty
	return true, nil
}

func (m *memCatalog) ReleaseReservation(_ context.Context, orderNumber, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := orderNumber + "/" + productID
	qty := m.reservations[key]
	if qty == 0 {
		return 0, nil
	}
	delete(m.reservations, key)
	p := m.products[productID]
	p.Stock += qty
	p.SalesCount -= qty
	return qty, nil
}

// drain removes stock directly, bypassing reservations, the way a
// concurrent competitor build would.
func (m *memCatalog) drain(productID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID].Stock -= qty
}

func (m *memCatalog) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

func (m *memCatalog) salesCount(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].SalesCount
}

type memCarts struct {
	mu    sync.Mutex
	items map[string][]cart.Item
}

func newMemCarts() *memCarts {
	return &memCarts{items: make(map[string][]cart.Item)}
}

func (m *memCarts) Items(_ context.Context, userID string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Item(nil), m.items[userID]...), nil
}

func (m *memCarts) Upsert(_ context.Context, userID string, item cart.Item) error {
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

func (m *memCarts) Delete(_ context.Context, userID, productID string) (bool, error) {
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

func (m *memCarts) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

type memOrders struct {
	mu   sync.Mutex
	byID map[string]*Order

	// insertFails makes the next n Insert calls return ErrDuplicateOrderNumber.
	insertFails int
}

func newMemOrders() *memOrders {
	return &memOrders{byID: make(map[string]*Order)}
}

func (m *memOrders) Insert(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFails > 0 {
		m.insertFails--
		return ErrDuplicateOrderNumber
	}
	for _, existing := range m.byID {
		if existing.OrderNumber == o.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}
	cp := cloneOrder(o)
	m.byID[o.ID] = cp
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *memOrders) List(_ context.Context, q ListQuery) ([]*Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*Order
	for _, o := range m.byID {
		if q.UserID == "" || o.UserID == q.UserID {
			all = append(all, cloneOrder(o))
		}
	}

	sort.Slice(all, func(i, j int) bool {
		var less bool
		if q.SortBy == "total" {
			less = all[i].Total < all[j].Total
		} else {
			less = all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		if q.Desc {
			return !less
		}
		return less
	})

	total := len(all)
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memOrders) ApplyStatus(_ context.Context, orderID string, upd StatusUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[orderID]
	if !ok {
		return false, ErrNotFound
	}

	allowed := false
	for _, s := range upd.AllowedFrom {
		if o.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	o.Status = upd.To
	if upd.TrackingNumber != "" {
		o.TrackingNumber = upd.TrackingNumber
	}
	if upd.DeliveredAt != nil {
		o.DeliveredAt = upd.DeliveredAt
	}
	if upd.CancelledAt != nil {
		o.CancelledAt = upd.CancelledAt
	}
	if upd.CancellationReason != "" {
		o.CancellationReason = upd.CancellationReason
	}
	if upd.PaymentStatus != "" {
		o.PaymentStatus = upd.PaymentStatus
	}
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: upd.To, Note: upd.Note})
	return true, nil
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	cp.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	return &cp
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *memPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memPublisher) Close() error { return nil }

func (m *memPublisher) byType(t string) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
