// Package events publishes order lifecycle records for downstream
// collaborators (notifications, reporting). Publishing is best-effort:
// callers log failures and never fail the business operation over one.
package events

import (
	"context"
	"time"
)

// Event types emitted by the engine.
const (
	TypeOrderPlaced    = "order.placed"
	TypeOrderCancelled = "order.cancelled"
	TypeStatusChanged  = "order.status_changed"
)

// Event is one lifecycle record. Amounts are minor currency units.
type Event struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	Total       int64     `json:"total,omitempty"`
	Note        string    `json:"note,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards events. Used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
