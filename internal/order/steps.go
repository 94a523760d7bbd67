package order

import (
	"context"
	"fmt"

	"github.com/karigari/order-engine/internal/cart"
	"github.com/karigari/order-engine/internal/catalog"
)

// Saga steps of the order build. Persist runs first so its compensation
// (delete) is the last thing undone; reservations compensate with releases;
// clearing the cart is last and needs no compensation.

type persistOrderStep struct {
	orders Repository
	order  *Order
}

func (s *persistOrderStep) Name() string { return "Persist_Order_Step" }

func (s *persistOrderStep) Execute(ctx context.Context) error {
	return s.orders.Insert(ctx, s.order)
}

func (s *persistOrderStep) Compensate(ctx context.Context) error {
	return s.orders.Delete(ctx, s.order.ID)
}

type reserveStockStep struct {
	ledger      *catalog.Ledger
	orderNumber string
	item        Item
}

func (s *reserveStockStep) Name() string {
	return fmt.Sprintf("Reserve_Stock_Step_%s", s.item.ProductID)
}

func (s *reserveStockStep) Execute(ctx context.Context) error {
	return s.ledger.Reserve(ctx, s.orderNumber, s.item.ProductID, s.item.Quantity)
}

func (s *reserveStockStep) Compensate(ctx context.Context) error {
	return s.ledger.Release(ctx, s.orderNumber, s.item.ProductID)
}

type clearCartStep struct {
	carts  cart.Repository
	userID string
}

func (s *clearCartStep) Name() string { return "Clear_Cart_Step" }

func (s *clearCartStep) Execute(ctx context.Context) error {
	return s.carts.Clear(ctx, s.userID)
}

// Compensate is empty: the cart is only cleared after every reservation
// succeeded, so nothing later in the saga can fail and need it back.
func (s *clearCartStep) Compensate(ctx context.Context) error {
	return nil
}
