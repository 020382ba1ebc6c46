package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microip/storefront-backend/internal/catalog"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
)

func TestProductList(t *testing.T) {
	h := newHarness(t)

	t.Run("all", func(t *testing.T) {
		rec := h.do(t, "s1", http.MethodGet, "/api/v1/products", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productListResponse
		decodeData(t, rec, &resp)
		assert.Equal(t, 12, resp.Total)
		assert.Len(t, resp.Products, 12)
	})

	t.Run("by category", func(t *testing.T) {
		rec := h.do(t, "s1", http.MethodGet, "/api/v1/products?category=RENT", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productListResponse
		decodeData(t, rec, &resp)
		assert.Equal(t, "rent", resp.Category)
		require.Len(t, resp.Products, 2)
		for _, p := range resp.Products {
			assert.Equal(t, catalog.CategoryRent, p.Category)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := h.do(t, "s1", http.MethodGet, "/api/v1/products?category=toys", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	})
}

func TestProductDetail(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "s1", http.MethodGet, "/api/v1/products/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var product catalog.Product
	decodeData(t, rec, &product)
	assert.Equal(t, "Scout Autonomous Mobile Robot", product.Name)

	rec = h.do(t, "s1", http.MethodGet, "/api/v1/products/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), errorCode(t, rec))
}

func TestProductCategories(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "s1", http.MethodGet, "/api/v1/products/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var counts map[catalog.Category]int
	decodeData(t, rec, &counts)
	assert.Equal(t, map[catalog.Category]int{
		catalog.CategoryBuy:         5,
		catalog.CategoryRent:        2,
		catalog.CategoryAccessories: 3,
		catalog.CategoryRepairs:     2,
	}, counts)
}

func TestSessionPingRequiresSession(t *testing.T) {
	h := newHarness(t)

	rec := h.doAs(t, "session-9", "visitor-9", http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeData(t, rec, &body)
	assert.Equal(t, "session-9", body["sessionId"])
	assert.Equal(t, "visitor-9", body["visitorId"])

	rec = h.do(t, "", http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
