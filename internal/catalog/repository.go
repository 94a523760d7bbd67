package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrProductUnavailable means the product does not exist or is inactive.
var ErrProductUnavailable = errors.New("product unavailable")

// InsufficientStockError reports a failed stock check or reservation.
// Available is the stock quantity observed when the failure was detected.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Product, e.Available)
}

// Repository is the port to the product catalog store.
//
// ConditionalDecrement and ReleaseReservation are the only two operations in
// the system that write a product's stock; everything else is read-only.
type Repository interface {
	// FindByID returns the product, ErrProductUnavailable if absent.
	// Inactive products are still returned; callers check IsActive.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindActiveByIDs returns the subset of ids that exist and are active.
	FindActiveByIDs(ctx context.Context, ids []string) ([]*Product, error)

	// ConditionalDecrement atomically checks stock >= qty and decrements it,
	// incrementing sales_count and recording a reservation row keyed by
	// orderNumber in the same transaction. Returns false, leaving stock
	// unchanged, when the check fails.
	ConditionalDecrement(ctx context.Context, productID string, qty int, orderNumber string) (bool, error)

	// ReleaseReservation consumes the reservation recorded for
	// (orderNumber, productID) and credits its quantity back to stock,
	// decrementing sales_count. Returns the quantity released; 0 means no
	// outstanding reservation existed, so nothing was credited.
	ReleaseReservation(ctx context.Context, orderNumber, productID string) (int, error)
}
