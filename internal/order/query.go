package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/karigari/order-engine/internal/pkg/cache"
)

// cacheOpOrder namespaces single-order cache keys; the state machine deletes
// the same keys on every status write.
const cacheOpOrder = "order"

const orderCacheTTL = time.Minute

// PageRequest selects and sorts a listing page.
type PageRequest struct {
	Page   int
	Limit  int
	SortBy string // createdAt (default) or total
	Desc   bool
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
		p.Desc = true
	}
	return p
}

// Page is one listing page with pagination arithmetic applied.
type Page struct {
	Orders     []*Order `json:"orders"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
}

// QueryService is the read side: single order and paginated listings.
// Single-order reads go through the cache when one is configured.
type QueryService struct {
	orders Repository
	cache  cache.Cache // nil-safe
}

func NewQueryService(orders Repository, c cache.Cache) *QueryService {
	return &QueryService{orders: orders, cache: c}
}

// Get fetches one order. Non-admin actors only see their own orders; anyone
// else's order reads as not found so ids don't leak existence.
func (q *QueryService) Get(ctx context.Context, orderID, actorID string, admin bool) (*Order, error) {
	ord, err := q.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && ord.UserID != actorID {
		return nil, ErrNotFound
	}
	return ord, nil
}

// ListByUser pages through one user's orders, newest first by default.
func (q *QueryService) ListByUser(ctx context.Context, userID string, p PageRequest) (*Page, error) {
	return q.list(ctx, userID, p)
}

// ListAll pages through every order (admin path).
func (q *QueryService) ListAll(ctx context.Context, p PageRequest) (*Page, error) {
	return q.list(ctx, "", p)
}

func (q *QueryService) list(ctx context.Context, userID string, p PageRequest) (*Page, error) {
	p = p.normalize()

	orders, total, err := q.orders.List(ctx, ListQuery{
		UserID: userID,
		Page:   p.Page,
		Limit:  p.Limit,
		SortBy: p.SortBy,
		Desc:   p.Desc,
	})
	if err != nil {
		return nil, err
	}

	return &Page{
		Orders:     orders,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}, nil
}

func (q *QueryService) load(ctx context.Context, orderID string) (*Order, error) {
	if q.cache == nil {
		return q.orders.FindByID(ctx, orderID)
	}

	key := q.cache.GenerateKey(cacheOpOrder, orderID)
	if raw, err := q.cache.Get(ctx, key); err == nil && raw != "" {
		var ord Order
		if err := json.Unmarshal([]byte(raw), &ord); err == nil {
			return &ord, nil
		}
	}

	ord, err := q.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(ord); err == nil {
		if err := q.cache.Set(ctx, key, raw, orderCacheTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache order", "order_id", orderID, "error", err)
		}
	}
	return ord, nil
}
