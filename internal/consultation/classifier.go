// Package consultation decides which cart lines need a scheduled call before payment.
package consultation

import (
	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/pricing"
)

// Partition splits a cart into lines that need a consultation and lines that can be paid
// straight away. It is derived on demand and never stored.
type Partition struct {
	RequiresConsultation []cart.Item `json:"requiresConsultation"`
	DirectCheckout       []cart.Item `json:"directCheckout"`
}

// NeedsConsultation reports whether at least one line requires a consultation.
func (p Partition) NeedsConsultation() bool {
	return len(p.RequiresConsultation) > 0
}

// Required reports whether item needs a consultation. Rentals always do; so do on-demand
// or zero prices (see pricing for the textual heuristic) and lines carrying add-ons.
func Required(item cart.Item) bool {
	if item.IsRent {
		return true
	}
	if pricing.IsOnDemand(item.Price) {
		return true
	}
	return len(item.AddOns) > 0
}

// Separate partitions items, keeping their relative order within each bucket.
func Separate(items []cart.Item) Partition {
	p := Partition{
		RequiresConsultation: []cart.Item{},
		DirectCheckout:       []cart.Item{},
	}
	for _, item := range items {
		if Required(item) {
			p.RequiresConsultation = append(p.RequiresConsultation, item)
			continue
		}
		p.DirectCheckout = append(p.DirectCheckout, item)
	}
	return p
}
