package order

import "github.com/shopspring/decimal"

// Pricing policy: free shipping above the threshold,
// otherwise a flat fee, plus 5% tax on the subtotal.
const (
	freeShippingThreshold = 1000
	flatShippingCost      = 50
)

var taxRate = decimal.NewFromFloat(0.05)

type pricing struct {
	Subtotal     int64
	ShippingCost int64
	Tax          int64
	Total        int64
}

// price computes the order totals from the snapshot lines.
func price(items []Item) pricing {
	var p pricing
	for _, it := range items {
		p.Subtotal += it.Price * int64(it.Quantity)
	}

	if p.Subtotal <= freeShippingThreshold {
		p.ShippingCost = flatShippingCost
	}

	// Decimal keeps the 5% rounding exact in minor units.
	p.Tax = decimal.NewFromInt(p.Subtotal).Mul(taxRate).Round(0).IntPart()
	p.Total = p.Subtotal + p.ShippingCost + p.Tax
	return p
}
