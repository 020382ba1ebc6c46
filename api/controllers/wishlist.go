package controllers

import (
	"context"
	"net/http"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/api/validators"
	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/wishlist"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

// WishlistSource hands out the visitor's persisted wishlist, keyed by the long-lived
// visitor id rather than the session.
type WishlistSource interface {
	For(ctx context.Context, visitorID string) *wishlist.Store
}

type wishlistResponse struct {
	Items     []wishlist.Item `json:"items"`
	ItemCount int             `json:"itemCount"`
	Changed   *bool           `json:"changed,omitempty"`
}

type addWishlistItemPayload struct {
	ProductID *cart.ItemID `json:"productId"`

	ID           cart.ItemID `json:"id" validate:"required_without=ProductID"`
	Name         string      `json:"name" validate:"required_without=ProductID"`
	Image        string      `json:"image"`
	Price        string      `json:"price"`
	MonthlyPrice string      `json:"monthlyPrice"`
}

func newWishlistResponse(store *wishlist.Store, changed *bool) wishlistResponse {
	return wishlistResponse{Items: store.Items(), ItemCount: store.ItemCount(), Changed: changed}
}

func visitorWishlist(r *http.Request, lists WishlistSource) (*wishlist.Store, error) {
	if lists == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist unavailable")
	}
	vid, err := visitorID(r.Context())
	if err != nil {
		return nil, err
	}
	return lists.For(r.Context(), vid), nil
}

// WishlistList returns the visitor's wishlist.
func WishlistList(lists WishlistSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := visitorWishlist(r, lists)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWishlistResponse(store, nil))
	}
}

// WishlistAdd adds a product; adding one already present is a no-op reported as
// changed=false.
func WishlistAdd(lists WishlistSource, products CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorWishlist(r, lists)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addWishlistItemPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := payload.toItem(products)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		added := store.AddItem(ctx, item)
		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, newWishlistResponse(store, &added))
	}
}

func (p addWishlistItemPayload) toItem(products CatalogReader) (wishlist.Item, error) {
	if p.ProductID == nil {
		return wishlist.Item{
			ID:           p.ID,
			Name:         validators.SanitizeString(p.Name, 256),
			Image:        p.Image,
			Price:        validators.SanitizeString(p.Price, 64),
			MonthlyPrice: validators.SanitizeString(p.MonthlyPrice, 64),
		}, nil
	}
	if products == nil {
		return wishlist.Item{}, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable")
	}
	product, err := products.Get(*p.ProductID)
	if err != nil {
		return wishlist.Item{}, err
	}
	return wishlist.Item{
		ID:           product.ID,
		Name:         product.Name,
		Image:        product.Image,
		Price:        product.Price,
		MonthlyPrice: product.MonthlyPrice,
	}, nil
}

// WishlistRemove drops an item; removing an absent id reports changed=false.
func WishlistRemove(lists WishlistSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorWishlist(r, lists)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := itemIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		removed := store.RemoveItem(ctx, id)
		responses.WriteSuccess(w, newWishlistResponse(store, &removed))
	}
}

// WishlistContains answers {inWishlist} for one id.
func WishlistContains(lists WishlistSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorWishlist(r, lists)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := itemIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"inWishlist": store.IsInWishlist(id)})
	}
}
