package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/catalog"
	"github.com/microip/storefront-backend/internal/checkout"
	"github.com/microip/storefront-backend/internal/scheduling"
	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/internal/wishlist"
	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/session"
)

const (
	testSessionHeader = "X-Test-Session"
	testVisitorHeader = "X-Test-Visitor"
)

type harness struct {
	router   chi.Router
	carts    *cart.Registry
	backend  *storage.Memory
	catalog  *catalog.Catalog
	wishlist *wishlist.Registry
	guards   *checkout.Manager
	logg     *logger.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	products, err := catalog.Default()
	require.NoError(t, err)

	h := &harness{
		carts:   cart.NewRegistry(time.Hour),
		backend: storage.NewMemory(),
		catalog: products,
		logg:    logg,
	}
	h.wishlist = wishlist.NewRegistry(h.backend, time.Hour, logg)

	schedCfg := config.SchedulingConfig{
		Provider:       scheduling.ProviderCalendly,
		URL:            "https://calendly.com/micro-ip/consultation",
		ReadyAttempts:  1,
		ReadyInterval:  time.Millisecond,
		SkipReadyProbe: true,
	}
	widgets, err := scheduling.NewFactory(schedCfg, logg)
	require.NoError(t, err)
	h.guards = checkout.NewManager(checkout.Options{
		Carts:   h.carts,
		Flags:   h.backend,
		FlagTTL: time.Hour,
		Widgets: widgets,
		Logger:  logg,
	})
	t.Cleanup(h.guards.Close)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			if sid := req.Header.Get(testSessionHeader); sid != "" {
				ctx = session.WithID(ctx, sid)
			}
			if vid := req.Header.Get(testVisitorHeader); vid != "" {
				ctx = session.WithVisitorID(ctx, vid)
			}
			req = req.WithContext(ctx)
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/v1/session", SessionPing(logg))
	r.Get("/api/v1/products", ProductList(products, logg))
	r.Get("/api/v1/products/categories", ProductCategories(products, logg))
	r.Get("/api/v1/products/{id}", ProductDetail(products, logg))
	r.Get("/api/v1/cart", CartGet(h.carts, logg))
	r.Post("/api/v1/cart/items", CartAddItem(h.carts, products, logg))
	r.Patch("/api/v1/cart/items/{id}", CartUpdateQuantity(h.carts, logg))
	r.Delete("/api/v1/cart/items/{id}", CartRemoveItem(h.carts, logg))
	r.Delete("/api/v1/cart", CartClear(h.carts, logg))
	r.Get("/api/v1/wishlist", WishlistList(h.wishlist, logg))
	r.Post("/api/v1/wishlist/items", WishlistAdd(h.wishlist, products, logg))
	r.Get("/api/v1/wishlist/items/{id}", WishlistContains(h.wishlist, logg))
	r.Delete("/api/v1/wishlist/items/{id}", WishlistRemove(h.wishlist, logg))
	r.Get("/api/v1/checkout/route", CheckoutRoute(h.guards, logg))
	r.Post("/api/v1/checkout/proceed", CheckoutProceed(h.guards, logg))
	r.Post("/api/v1/checkout/complete", CheckoutComplete(h.guards, logg))
	r.Get("/api/v1/consultations/widget", ConsultationWidget(h.guards, logg))
	r.Post("/api/v1/consultations/events", ConsultationEvent(h.guards, logg))
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, sid, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return h.doAs(t, sid, sid, method, target, body)
}

// doAs sends the request under a session id and a separate visitor id.
func (h *harness) doAs(t *testing.T, sid, visitor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if sid != "" {
		req.Header.Set(testSessionHeader, sid)
	}
	if visitor != "" {
		req.Header.Set(testVisitorHeader, visitor)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the {data} envelope into dest.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Error.Code
}
