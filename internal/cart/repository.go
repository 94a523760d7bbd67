package cart

import "context"

// Repository stores cart lines one row per (user, product). Upsert replaces
// the line's quantity in place, so concurrent adds for different products
// never clobber each other the way a whole-cart replace would.
type Repository interface {
	// Items returns the user's lines; an empty slice when no cart exists yet.
	Items(ctx context.Context, userID string) ([]Item, error)

	// Upsert writes the line, creating the cart lazily on first add.
	Upsert(ctx context.Context, userID string, item Item) error

	// Delete removes the line, reporting whether it existed.
	Delete(ctx context.Context, userID, productID string) (bool, error)

	// Clear removes every line. Clearing an absent cart is a no-op success.
	Clear(ctx context.Context, userID string) error
}
