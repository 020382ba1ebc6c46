package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/microip/storefront-backend/api/controllers"
	"github.com/microip/storefront-backend/api/middleware"
	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/redis"
)

const paymentRateLimitPolicy = "payment_intent"

// NewRouter wires the storefront API. redisClient may be nil; idempotency replay and
// rate limiting are then disabled. metricsHandler may be nil to skip /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	reporter controllers.HealthReporter,
	metricsHandler http.Handler,
	products controllers.CatalogReader,
	carts controllers.CartSource,
	wishlists controllers.WishlistSource,
	guards controllers.GuardSource,
	payments controllers.IntentCreator,
	redisClient *redis.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var (
		idempotencyStore redis.IdempotencyStore
		limiter          redis.RateLimiter
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
	}

	paymentPolicy := middleware.NewRateLimitPolicy(
		paymentRateLimitPolicy,
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.PaymentLimit,
		responses.WritePlainError,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, reporter, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(reporter, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Session, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.With(middleware.RateLimit(paymentPolicy, limiter, logg)).
				Post("/payment-intent", controllers.PaymentIntentCreate(payments, logg))

			r.Route("/v1", func(r chi.Router) {
				r.Get("/session", controllers.SessionPing(logg))

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.ProductList(products, logg))
					r.Get("/categories", controllers.ProductCategories(products, logg))
					r.Get("/{id}", controllers.ProductDetail(products, logg))
				})

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartGet(carts, logg))
					r.Delete("/", controllers.CartClear(carts, logg))
					r.Post("/items", controllers.CartAddItem(carts, products, logg))
					r.Patch("/items/{id}", controllers.CartUpdateQuantity(carts, logg))
					r.Delete("/items/{id}", controllers.CartRemoveItem(carts, logg))
				})

				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", controllers.WishlistList(wishlists, logg))
					r.Post("/items", controllers.WishlistAdd(wishlists, products, logg))
					r.Get("/items/{id}", controllers.WishlistContains(wishlists, logg))
					r.Delete("/items/{id}", controllers.WishlistRemove(wishlists, logg))
				})

				r.Route("/checkout", func(r chi.Router) {
					r.Get("/route", controllers.CheckoutRoute(guards, logg))
					r.Post("/proceed", controllers.CheckoutProceed(guards, logg))
					r.Post("/complete", controllers.CheckoutComplete(guards, logg))
				})

				r.Route("/consultations", func(r chi.Router) {
					r.Get("/widget", controllers.ConsultationWidget(guards, logg))
					r.Post("/events", controllers.ConsultationEvent(guards, logg))
				})
			})
		})
	})

	return r
}
