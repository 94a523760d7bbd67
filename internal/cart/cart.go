// Package cart holds per-user line items ahead of an order.
//
// Cart contents are advisory: adding to the cart checks stock for early
// feedback but reserves nothing. The stock debit happens at order-build time.
package cart

import "errors"

// MaxLineQuantity caps a single line item's quantity.
const MaxLineQuantity = 10

var (
	// ErrItemNotFound means the cart has no line for the product.
	ErrItemNotFound = errors.New("item not found in cart")

	// ErrQuantityCapExceeded means the merged quantity would pass MaxLineQuantity.
	ErrQuantityCapExceeded = errors.New("quantity exceeds per-item cap")

	// ErrInvalidQuantity means a non-positive (or, for updates, negative) quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Item is a stored cart line. It carries no price snapshot; price is resolved
// live from the catalog at read time and at order-build time.
type Item struct {
	ProductID string
	Quantity  int
}

// ViewItem is a cart line joined with live product data for display.
type ViewItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
	Stock     int    `json:"stock"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

// View is the user-facing cart projection. Lines whose product has gone
// inactive are filtered out (they stay in storage) and excluded from totals.
type View struct {
	Items     []ViewItem `json:"items"`
	Total     int64      `json:"total"`
	ItemCount int        `json:"itemCount"`
}
