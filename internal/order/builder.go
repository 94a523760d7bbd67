package order

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/karigari/order-engine/internal/cart"
	"github.com/karigari/order-engine/internal/catalog"
	"github.com/karigari/order-engine/internal/coordinator"
	"github.com/karigari/order-engine/internal/coordinator/buildlog"
	"github.com/karigari/order-engine/internal/events"
)

// BuildItem is one requested line of an order.
type BuildItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// BuildRequest carries everything needed to build an order. Constructed from
// the HTTP DTO and validated before any store access.
type BuildRequest struct {
	Items           []BuildItem
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	PaymentID       string
	Notes           string
	IsGift          bool
	GiftMessage     string
}

func (r BuildRequest) Validate() error {
	if len(r.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}

	seen := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		if it.ProductID == "" {
			return &ValidationError{Field: "items.productId", Reason: "required"}
		}
		if it.Quantity < 1 || it.Quantity > cart.MaxLineQuantity {
			return &ValidationError{Field: "items.quantity", Reason: "must be between 1 and 10"}
		}
		if seen[it.ProductID] {
			return &ValidationError{Field: "items.productId", Reason: "duplicate product"}
		}
		seen[it.ProductID] = true
	}

	if !r.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Reason: "must be one of cod, razorpay, upi"}
	}

	return r.ShippingAddress.Validate()
}

// Builder turns a build request into a persisted order, debiting stock.
type Builder struct {
	products  catalog.Repository
	ledger    *catalog.Ledger
	orders    Repository
	carts     cart.Repository
	log       buildlog.Repository
	publisher events.Publisher
}

func NewBuilder(
	products catalog.Repository,
	ledger *catalog.Ledger,
	orders Repository,
	carts cart.Repository,
	log buildlog.Repository,
	publisher events.Publisher,
) *Builder {
	return &Builder{
		products:  products,
		ledger:    ledger,
		orders:    orders,
		carts:     carts,
		log:       log,
		publisher: publisher,
	}
}

// orderNumberRetries bounds regeneration after an order-number collision.
const orderNumberRetries = 3

// Build validates availability, snapshots the priced items, and runs the
// persist/reserve/clear sequence as a saga.
//
// The availability pass over the loaded products is advisory; the reserve
// steps are the authoritative gate. A build that passes the first check can
// still lose to a concurrent build at reserve time, in which case the saga
// compensates: earlier reservations are released and the order row is
// deleted before the error is returned.
func (b *Builder) Build(ctx context.Context, userID string, req BuildRequest) (*Order, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "required"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.ProductID
	}

	products, err := b.products.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// A shorter result set means something was missing or inactive; the two
	// cases are indistinguishable to the shopper on purpose.
	if len(products) != len(ids) {
		return nil, ErrProductsUnavailable
	}

	byID := make(map[string]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	snapshots := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		p := byID[it.ProductID]
		if p.Stock < it.Quantity {
			return nil, &catalog.InsufficientStockError{Product: p.Name, Available: p.Stock}
		}
		snapshots = append(snapshots, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			ArtisanID: p.ArtisanID,
			Image:     p.FirstImage(),
		})
	}

	payload, _ := json.Marshal(req.Items)

	var ord *Order
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		ord = newOrder(userID, snapshots, price(snapshots), req)

		err = b.runBuildSaga(ctx, userID, ord, string(payload))
		if errors.Is(err, ErrDuplicateOrderNumber) {
			slog.WarnContext(ctx, "order number collision, regenerating",
				"order_number", ord.OrderNumber, "attempt", attempt+1)
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	b.publish(ctx, events.Event{
		Type:        events.TypeOrderPlaced,
		OrderNumber: ord.OrderNumber,
		UserID:      ord.UserID,
		Status:      ord.Status.String(),
		Total:       ord.Total,
		OccurredAt:  time.Now().UTC(),
	})

	slog.InfoContext(ctx, "order placed",
		"order_number", ord.OrderNumber, "user_id", userID, "total", ord.Total)
	return ord, nil
}

func (b *Builder) runBuildSaga(ctx context.Context, userID string, ord *Order, payload string) error {
	steps := make([]coordinator.Step, 0, len(ord.Items)+2)
	steps = append(steps, &persistOrderStep{orders: b.orders, order: ord})
	for _, it := range ord.Items {
		steps = append(steps, &reserveStockStep{
			ledger:      b.ledger,
			orderNumber: ord.OrderNumber,
			item:        it,
		})
	}
	steps = append(steps, &clearCartStep{carts: b.carts, userID: userID})

	return coordinator.NewOrchestrator(ord.OrderNumber, steps, b.log).Start(ctx, payload)
}

func (b *Builder) publish(ctx context.Context, e events.Event) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish order event",
			"type", e.Type, "order_number", e.OrderNumber, "error", err)
	}
}
