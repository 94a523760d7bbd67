package order

import (
	"context"
	"time"
)

// ListQuery selects a page of orders. UserID == "" lists across all users
// (admin path). SortBy is restricted by the store to known columns.
type ListQuery struct {
	UserID string
	Page   int
	Limit  int
	SortBy string
	Desc   bool
}

// StatusUpdate describes one conditional status transition. The store must
// apply the guard check and the write atomically: the row moves to To only
// if its current status is in AllowedFrom, and exactly one concurrent caller
// can win.
type StatusUpdate struct {
	To          Status
	AllowedFrom []Status
	Note        string

	TrackingNumber     string
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string

	// PaymentStatus, when non-empty, is written alongside the transition
	// (e.g. refunded on cancelling a paid order).
	PaymentStatus PaymentStatus
}

// Repository stores order aggregates.
type Repository interface {
	// Insert persists the full aggregate. ErrDuplicateOrderNumber on an
	// order-number collision.
	Insert(ctx context.Context, o *Order) error

	// Delete removes the aggregate. Used only by build compensation;
	// completed orders are never deleted.
	Delete(ctx context.Context, id string) error

	// FindByID loads the aggregate including history. ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*Order, error)

	// List returns one page and the total match count.
	List(ctx context.Context, q ListQuery) ([]*Order, int, error)

	// ApplyStatus attempts the guarded transition, appending a history row
	// on success. Returns false when the guard rejected it (the order exists
	// but its status was not in AllowedFrom); ErrNotFound when it is absent.
	ApplyStatus(ctx context.Context, orderID string, upd StatusUpdate) (bool, error)
}
