package cart

import (
	"context"
	"fmt"

	"github.com/karigari/order-engine/internal/catalog"
)

// Service implements the cart operations, each scoped to one user.
type Service struct {
	carts   Repository
	catalog catalog.Repository
}

func NewService(carts Repository, products catalog.Repository) *Service {
	return &Service{carts: carts, catalog: products}
}

// Add merges qty into the user's line for the product, creating the line if
// absent. The stock check covers the merged quantity (existing + requested)
// but reserves nothing.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return catalog.ErrProductUnavailable
	}

	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cart for %s: %w", userID, err)
	}

	merged := qty
	for _, it := range items {
		if it.ProductID == productID {
			merged += it.Quantity
			break
		}
	}

	if merged > MaxLineQuantity {
		return ErrQuantityCapExceeded
	}
	if product.Stock < merged {
		return &catalog.InsufficientStockError{Product: product.Name, Available: product.Stock}
	}

	return s.carts.Upsert(ctx, userID, Item{ProductID: productID, Quantity: merged})
}

// UpdateQuantity overwrites the line's quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		return s.Remove(ctx, userID, productID)
	}
	if qty > MaxLineQuantity {
		return ErrQuantityCapExceeded
	}

	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cart for %s: %w", userID, err)
	}
	found := false
	for _, it := range items {
		if it.ProductID == productID {
			found = true
			break
		}
	}
	if !found {
		return ErrItemNotFound
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return catalog.ErrProductUnavailable
	}
	if product.Stock < qty {
		return &catalog.InsufficientStockError{Product: product.Name, Available: product.Stock}
	}

	return s.carts.Upsert(ctx, userID, Item{ProductID: productID, Quantity: qty})
}

// Remove deletes the line, ErrItemNotFound if absent.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	existed, err := s.carts.Delete(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("remove %s from cart of %s: %w", productID, userID, err)
	}
	if !existed {
		return ErrItemNotFound
	}
	return nil
}

// Clear empties the cart unconditionally.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

// Read returns the cart joined with live product data. Lines whose product
// is gone or inactive are filtered from the view but left in storage, so
// they reappear if the product is reactivated.
func (s *Service) Read(ctx context.Context, userID string) (*View, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart for %s: %w", userID, err)
	}

	view := &View{Items: []ViewItem{}}
	for _, it := range items {
		product, err := s.catalog.FindByID(ctx, it.ProductID)
		if err == catalog.ErrProductUnavailable {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			continue
		}

		line := ViewItem{
			ProductID: it.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.FirstImage(),
			Stock:     product.Stock,
			Quantity:  it.Quantity,
			LineTotal: product.Price * int64(it.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Total += line.LineTotal
		view.ItemCount += it.Quantity
	}

	return view, nil
}
