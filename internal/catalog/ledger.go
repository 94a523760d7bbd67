package catalog

import (
	"context"
	"fmt"
	"log/slog"
)

// Ledger is the stock ledger: the check-and-reserve / release pair every
// stock mutation in the engine goes through.
//
// Reserve is the authoritative gate. A caller may have checked availability
// moments earlier and still lose here to a concurrent reservation; the
// conditional decrement in the store decides.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// CheckAvailability is the advisory read used for early feedback. It holds
// nothing: stock can change between this call and Reserve.
func (l *Ledger) CheckAvailability(ctx context.Context, productID string, qty int) (bool, int, error) {
	p, err := l.repo.FindByID(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	return p.Stock >= qty, p.Stock, nil
}

// Reserve atomically debits qty from the product's stock under orderNumber.
// On insufficiency it re-reads the product so the reported availability is
// current, and returns *InsufficientStockError.
func (l *Ledger) Reserve(ctx context.Context, orderNumber, productID string, qty int) error {
	ok, err := l.repo.ConditionalDecrement(ctx, productID, qty, orderNumber)
	if err != nil {
		return fmt.Errorf("reserve %s for %s: %w", productID, orderNumber, err)
	}
	if ok {
		return nil
	}

	p, err := l.repo.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{Product: p.Name, Available: p.Stock}
}

// Release credits the reservation held under (orderNumber, productID) back
// to stock. Releasing a reservation that was never made, or was already
// released, credits nothing: the reservation row bounds the credit, so a
// doubled release can never over-credit stock.
func (l *Ledger) Release(ctx context.Context, orderNumber, productID string) error {
	released, err := l.repo.ReleaseReservation(ctx, orderNumber, productID)
	if err != nil {
		return fmt.Errorf("release %s for %s: %w", productID, orderNumber, err)
	}
	if released == 0 {
		slog.WarnContext(ctx, "no outstanding reservation to release",
			"order_number", orderNumber, "product_id", productID)
	}
	return nil
}
