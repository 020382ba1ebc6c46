package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/api/validators"
	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/catalog"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

// CatalogReader is the read side of the product catalog.
type CatalogReader interface {
	List(category string) ([]catalog.Product, error)
	Get(id cart.ItemID) (catalog.Product, error)
	Categories() map[catalog.Category]int
}

type productListResponse struct {
	Category string            `json:"category,omitempty"`
	Total    int               `json:"total"`
	Products []catalog.Product `json:"products"`
}

// ProductList returns the catalog, optionally filtered by ?category=buy|rent|accessories|repairs.
func ProductList(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		category := strings.ToLower(validators.QueryString(r, "category"))
		products, err := svc.List(category)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, productListResponse{
			Category: category,
			Total:    len(products),
			Products: products,
		})
	}
}

// ProductDetail returns one product by id.
func ProductDetail(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		id, err := itemIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		product, err := svc.Get(id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductCategories returns the number of products per category.
func ProductCategories(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Categories())
	}
}

func itemIDParam(r *http.Request, name string) (cart.ItemID, error) {
	raw := validators.SanitizeString(chi.URLParam(r, name), 128)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	return cart.ItemID(raw), nil
}
