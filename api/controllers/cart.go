package controllers

import (
	"net/http"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/api/validators"
	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/consultation"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

// CartSource hands out the visitor's in-memory cart.
type CartSource interface {
	For(sessionID string) *cart.Store
}

type cartResponse struct {
	Items             []cart.Item            `json:"items"`
	ItemCount         int                    `json:"itemCount"`
	NeedsConsultation bool                   `json:"needsConsultation"`
	Partition         consultation.Partition `json:"partition"`
}

// addCartItemPayload accepts either a catalog reference (productId + addOnIds) or a
// complete cart line as the front end holds it.
type addCartItemPayload struct {
	ProductID *cart.ItemID  `json:"productId"`
	AddOnIDs  []cart.ItemID `json:"addOnIds"`

	ID     cart.ItemID  `json:"id" validate:"required_without=ProductID"`
	Name   string       `json:"name" validate:"required_without=ProductID"`
	Image  string       `json:"image"`
	Price  string       `json:"price"`
	IsRent bool         `json:"isRent"`
	AddOns []cart.AddOn `json:"addOns" validate:"dive"`
}

type updateQuantityPayload struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func newCartResponse(store *cart.Store) cartResponse {
	items := store.Items()
	partition := consultation.Separate(items)
	return cartResponse{
		Items:             items,
		ItemCount:         store.ItemCount(),
		NeedsConsultation: partition.NeedsConsultation(),
		Partition:         partition,
	}
}

func visitorCart(r *http.Request, carts CartSource) (*cart.Store, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
	}
	sid, err := sessionID(r.Context())
	if err != nil {
		return nil, err
	}
	return carts.For(sid), nil
}

// CartGet returns the cart with its consultation partition.
func CartGet(carts CartSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := visitorCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// CartAddItem adds a line or bumps the quantity of an existing one.
func CartAddItem(carts CartSource, products CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorCart(r, carts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addCartItemPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := payload.toItem(products)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		added := store.AddItem(item)
		logg.Debug(logg.WithFields(ctx, map[string]any{"item_id": added.ID, "quantity": added.Quantity}), "cart.item_added")
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store))
	}
}

func (p addCartItemPayload) toItem(products CatalogReader) (cart.Item, error) {
	if p.ProductID == nil {
		return cart.Item{
			ID:     p.ID,
			Name:   validators.SanitizeString(p.Name, 256),
			Image:  p.Image,
			Price:  validators.SanitizeString(p.Price, 64),
			IsRent: p.IsRent,
			AddOns: p.AddOns,
		}, nil
	}
	if products == nil {
		return cart.Item{}, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable")
	}
	product, err := products.Get(*p.ProductID)
	if err != nil {
		return cart.Item{}, err
	}
	return product.CartItem(p.AddOnIDs)
}

// CartUpdateQuantity sets a line's quantity; zero or less removes it.
func CartUpdateQuantity(carts CartSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorCart(r, carts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := itemIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateQuantityPayload
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if _, ok := store.Get(id); !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart"))
			return
		}

		store.UpdateQuantity(id, *payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// CartRemoveItem removes a line; removing an absent id is not an error.
func CartRemoveItem(carts CartSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		store, err := visitorCart(r, carts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := itemIDParam(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		store.RemoveItem(id)
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// CartClear empties the cart.
func CartClear(carts CartSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := visitorCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Clear()
		responses.WriteSuccess(w, newCartResponse(store))
	}
}
