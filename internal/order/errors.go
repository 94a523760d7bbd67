package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no order exists for the id (or the caller may not see it).
	ErrNotFound = errors.New("order not found")

	// ErrProductsUnavailable means at least one requested product is missing
	// or inactive, so the build cannot proceed.
	ErrProductsUnavailable = errors.New("one or more products are unavailable")

	// ErrDuplicateOrderNumber is returned by the store on an order-number
	// collision; the builder regenerates and retries.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrForbidden means the actor lacks the privilege for the operation.
	ErrForbidden = errors.New("forbidden")
)

// InvalidTransitionError reports a rejected status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
