package consultation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microip/storefront-backend/internal/cart"
)

func TestRentalsAlwaysRequireConsultation(t *testing.T) {
	prices := []string{"$500", "$0", "Contact for pricing", ""}
	for _, price := range prices {
		for _, addOns := range [][]cart.AddOn{nil, {{ID: "a"}}} {
			item := cart.Item{ID: "r", Price: price, IsRent: true, AddOns: addOns}
			assert.True(t, Required(item), "rental with price %q", price)
		}
	}
}

func TestZeroOrUnparseablePriceRequiresConsultation(t *testing.T) {
	prices := []string{"$0", "0.00", "Contact for pricing", "Price on request", "N/A", "—", "-", "", "call us", "."}
	for _, price := range prices {
		assert.True(t, Required(cart.Item{ID: "x", Price: price}), "price %q", price)
	}
}

func TestAddOnsRequireConsultation(t *testing.T) {
	item := cart.Item{ID: "3", Price: "$200", AddOns: []cart.AddOn{{ID: "a"}}}
	assert.True(t, Required(item))
}

func TestPricedPlainItemsGoDirect(t *testing.T) {
	prices := []string{"$500", "$1,999", "$0.01", "From $49"}
	for _, price := range prices {
		assert.False(t, Required(cart.Item{ID: "x", Price: price}), "price %q", price)
	}
}

func TestSeparateScenarioPricedAndOnDemand(t *testing.T) {
	items := []cart.Item{
		{ID: "1", Price: "$500"},
		{ID: "2", Price: "Contact for pricing"},
	}
	p := Separate(items)
	require.Len(t, p.DirectCheckout, 1)
	require.Len(t, p.RequiresConsultation, 1)
	assert.Equal(t, cart.ItemID("1"), p.DirectCheckout[0].ID)
	assert.Equal(t, cart.ItemID("2"), p.RequiresConsultation[0].ID)
	assert.True(t, p.NeedsConsultation())
}

func TestSeparateScenarioAddOnsOnly(t *testing.T) {
	p := Separate([]cart.Item{{ID: "3", Price: "$200", AddOns: []cart.AddOn{{ID: "a"}}}})
	assert.Empty(t, p.DirectCheckout)
	require.Len(t, p.RequiresConsultation, 1)
	assert.Equal(t, cart.ItemID("3"), p.RequiresConsultation[0].ID)
}

func TestSeparateIsStableAndLossless(t *testing.T) {
	var items []cart.Item
	for i := 0; i < 40; i++ {
		item := cart.Item{ID: cart.ItemID(fmt.Sprint(i)), Price: fmt.Sprintf("$%d", i%4)}
		if i%5 == 0 {
			item.IsRent = true
		}
		if i%7 == 0 {
			item.AddOns = []cart.AddOn{{ID: "warranty"}}
		}
		items = append(items, item)
	}

	p := Separate(items)
	assert.Equal(t, len(items), len(p.DirectCheckout)+len(p.RequiresConsultation))

	seen := map[cart.ItemID]int{}
	for _, bucket := range [][]cart.Item{p.DirectCheckout, p.RequiresConsultation} {
		last := -1
		for _, item := range bucket {
			seen[item.ID]++
			idx := indexOf(items, item.ID)
			assert.Greater(t, idx, last, "relative order must be preserved")
			last = idx
		}
	}
	for _, item := range items {
		assert.Equal(t, 1, seen[item.ID], "item %s must appear exactly once", item.ID)
	}

	again := Separate(items)
	assert.Equal(t, p, again)
}

func TestSeparateEmpty(t *testing.T) {
	p := Separate(nil)
	assert.NotNil(t, p.DirectCheckout)
	assert.NotNil(t, p.RequiresConsultation)
	assert.False(t, p.NeedsConsultation())
}

func indexOf(items []cart.Item, id cart.ItemID) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
