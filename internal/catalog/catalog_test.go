package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/consultation"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
)

func TestDefaultCatalogCategories(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	counts := c.Categories()
	assert.Equal(t, 5, counts[CategoryBuy])
	assert.Equal(t, 2, counts[CategoryRent])
	assert.Equal(t, 3, counts[CategoryAccessories])
	assert.Equal(t, 2, counts[CategoryRepairs])

	all, err := c.List("")
	require.NoError(t, err)
	assert.Len(t, all, 12)
	assert.Equal(t, cart.ItemID("1"), all[0].ID, "fixture order is kept")
}

func TestListFiltersAndValidates(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	rentals, err := c.List(" RENT ")
	require.NoError(t, err)
	for _, p := range rentals {
		assert.Equal(t, CategoryRent, p.Category)
	}

	_, err = c.List("toys")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGet(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	p, err := c.Get("3")
	require.NoError(t, err)
	assert.Equal(t, "Contact for pricing", p.Price)
	assert.Nil(t, p.Pricing.AmountCents)

	p, err = c.Get("8")
	require.NoError(t, err)
	require.NotNil(t, p.Pricing.AmountCents)
	assert.EqualValues(t, 64999, *p.Pricing.AmountCents)

	_, err = c.Get("999")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, `product "999" not found`, pkgerrors.As(err).Message())
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		product Product
		want    Category
	}{
		{Product{Name: "Rover", MonthlyPrice: "$99"}, CategoryRent},
		{Product{Name: "Gripper repair service", Tags: []string{"gripper"}}, CategoryRepairs},
		{Product{Name: "Charger dock"}, CategoryAccessories},
		{Product{Name: "Humanoid", Description: "ships with a charger"}, CategoryBuy},
		{Product{Name: "Quadruped"}, CategoryBuy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.product), tc.product.Name)
	}
}

func TestCartItemFromProduct(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	arm, _ := c.Get("1")
	plain, err := arm.CartItem(nil)
	require.NoError(t, err)
	assert.False(t, consultation.Required(plain))

	withAddOn, err := arm.CartItem([]cart.ItemID{"atlas-install"})
	require.NoError(t, err)
	require.Len(t, withAddOn.AddOns, 1)
	assert.True(t, consultation.Required(withAddOn))

	_, err = arm.CartItem([]cart.ItemID{"nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	rental, _ := c.Get("4")
	rentItem, err := rental.CartItem(nil)
	require.NoError(t, err)
	assert.True(t, rentItem.IsRent)
	assert.Equal(t, "$1,200", rentItem.Price)
	assert.True(t, consultation.Required(rentItem))
}

func TestLoadRejectsBadFixtures(t *testing.T) {
	fsys := fstest.MapFS{
		"dup.json":      {Data: []byte(`[{"id":1,"name":"a"},{"id":"1","name":"b"}]`)},
		"noid.json":     {Data: []byte(`[{"name":"a"}]`)},
		"broken.json":   {Data: []byte(`[`)},
		"explicit.json": {Data: []byte(`[{"id":"x","name":"Battery","category":"buy"}]`)},
	}
	for _, path := range []string{"dup.json", "noid.json", "broken.json", "missing.json"} {
		_, err := Load(fsys, path)
		assert.Error(t, err, path)
	}

	c, err := Load(fsys, "explicit.json")
	require.NoError(t, err)
	p, _ := c.Get("x")
	assert.Equal(t, CategoryBuy, p.Category, "explicit category wins over keywords")
}
