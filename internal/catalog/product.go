// Package catalog exposes the product catalog to the engine and wraps its
// stock field in the ledger, the only component allowed to mutate it.
package catalog

import "time"

// Product is a catalog entry. Price is in minor currency units (paise).
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Stock       int
	SalesCount  int
	Images      []string
	ArtisanID   string
	IsActive    bool
	CreatedAt   time.Time
}

// FirstImage returns the primary image URL, or "" when none is set.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
