package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/karigari/order-engine/internal/catalog"
	"github.com/karigari/order-engine/internal/events"
	"github.com/karigari/order-engine/internal/pkg/cache"
)

// Machine drives status transitions. The guard check and the status write
// are one conditional update in the store, so two concurrent transitions on
// the same order cannot both pass the guard. That is what makes the
// cancellation release exactly-once.
type Machine struct {
	orders    Repository
	ledger    *catalog.Ledger
	publisher events.Publisher
	cache     cache.Cache // nil-safe: invalidation skipped when nil
}

func NewMachine(orders Repository, ledger *catalog.Ledger, publisher events.Publisher, c cache.Cache) *Machine {
	return &Machine{orders: orders, ledger: ledger, publisher: publisher, cache: c}
}

// Cancel transitions the order to cancelled and releases its reservations.
// Permitted only from placed or confirmed. Non-admin actors can only cancel
// their own orders; others' orders read as not found.
func (m *Machine) Cancel(ctx context.Context, orderID, actorID string, admin bool, reason string) (*Order, error) {
	ord, err := m.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && ord.UserID != actorID {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	note := "Order cancelled"
	if reason != "" {
		note += ": " + reason
	}

	upd := StatusUpdate{
		To:                 StatusCancelled,
		AllowedFrom:        []Status{StatusPlaced, StatusConfirmed},
		Note:               note,
		CancelledAt:        &now,
		CancellationReason: reason,
	}
	if ord.PaymentStatus == PaymentPaid {
		upd.PaymentStatus = PaymentRefunded
	}

	ok, err := m.orders.ApplyStatus(ctx, orderID, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the guard: someone else moved the order first (possibly a
		// concurrent cancel). Report the current status.
		current, err := m.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: StatusCancelled}
	}

	// Only the guard winner reaches this point, so each reservation is
	// released at most once; the reservation rows bound it a second time.
	for _, it := range ord.Items {
		if err := m.ledger.Release(ctx, ord.OrderNumber, it.ProductID); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to release reservation on cancel",
				"order_number", ord.OrderNumber, "product_id", it.ProductID, "error", err)
		}
	}

	m.invalidate(ctx, orderID)
	m.publish(ctx, events.Event{
		Type:        events.TypeOrderCancelled,
		OrderNumber: ord.OrderNumber,
		UserID:      ord.UserID,
		Status:      StatusCancelled.String(),
		Note:        reason,
		OccurredAt:  now,
	})

	slog.InfoContext(ctx, "order cancelled", "order_number", ord.OrderNumber, "actor", actorID)
	return m.orders.FindByID(ctx, orderID)
}

// Advance moves the order forward along the status chain (admin path).
// Forward transitions have no stock effect: stock was debited at build time.
// A cancelled target is delegated to Cancel so the release path stays single.
func (m *Machine) Advance(ctx context.Context, orderID string, to Status, note, trackingNumber string) (*Order, error) {
	if !to.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if to == StatusCancelled {
		return m.Cancel(ctx, orderID, "", true, note)
	}

	ord, err := m.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Rejected before any write.
	if !ord.Status.CanTransitionTo(to) {
		return nil, &InvalidTransitionError{From: ord.Status, To: to}
	}

	if note == "" {
		note = "Status updated to " + to.String()
	}
	upd := StatusUpdate{
		To:             to,
		AllowedFrom:    []Status{ord.Status},
		Note:           note,
		TrackingNumber: trackingNumber,
	}
	if to == StatusDelivered {
		now := time.Now().UTC()
		upd.DeliveredAt = &now
	}

	ok, err := m.orders.ApplyStatus(ctx, orderID, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := m.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}

	m.invalidate(ctx, orderID)
	m.publish(ctx, events.Event{
		Type:        events.TypeStatusChanged,
		OrderNumber: ord.OrderNumber,
		UserID:      ord.UserID,
		Status:      to.String(),
		Note:        note,
		OccurredAt:  time.Now().UTC(),
	})

	return m.orders.FindByID(ctx, orderID)
}

func (m *Machine) invalidate(ctx context.Context, orderID string) {
	if m.cache == nil {
		return
	}
	key := m.cache.GenerateKey(cacheOpOrder, orderID)
	if err := m.cache.Del(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to invalidate order cache", "order_id", orderID, "error", err)
	}
}

func (m *Machine) publish(ctx context.Context, e events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish order event",
			"type", e.Type, "order_number", e.OrderNumber, "error", err)
	}
}
