package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kingshoppers/storefront/api/controllers"
	cartcontrollers "github.com/kingshoppers/storefront/api/controllers/cart"
	"github.com/kingshoppers/storefront/api/middleware"
	"github.com/kingshoppers/storefront/internal/access"
	"github.com/kingshoppers/storefront/pkg/config"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
	pkgredis "github.com/kingshoppers/storefront/pkg/redis"
)

// RedisStore backs idempotency records, coupon throttling and readiness.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// RemoteAPI is the part of the King Shoppers API the BFF proxies.
type RemoteAPI interface {
	controllers.CatalogAPI
	controllers.DashboardAPI
	controllers.LogoutAPI
	Me(ctx context.Context) (*kingapi.User, error)
}

// Dependencies wire the router.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    RedisStore
	DB       controllers.Pinger
	API      RemoteAPI
	Carts    cartcontrollers.Service
	Catalog  cartcontrollers.Catalog
	Checkout controllers.CheckoutService
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon",
		cfg.CouponRateLimit.Window,
		cfg.CouponRateLimit.IPLimit,
		cfg.CouponRateLimit.SessionLimit,
	)

	// route patterns are only complete at the endpoint, so idempotency is
	// attached per route rather than on the group
	idempotent := middleware.Idempotency(deps.Redis, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(cfg.Session, logg))
		r.Use(middleware.ResolveIdentity(deps.API, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", controllers.AuthMe(logg))
			r.Post("/logout", controllers.AuthLogout(deps.API, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireArea(access.AreaStorefront, logg))
			r.Get("/products", controllers.ProductList(deps.API, logg))
			r.Get("/brands", controllers.BrandList(deps.API, logg))
			r.Get("/homepage-sections", controllers.HomepageSections(deps.API, logg))
			r.Post("/homepage-sections/{sectionId}/click", controllers.HomepageSectionClick(deps.API, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireArea(access.AreaCart, logg))
			r.Get("/", cartcontrollers.CartFetch(deps.Carts, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Carts, logg))
			r.Get("/validate", cartcontrollers.CartValidate(deps.Carts, logg))
			r.Post("/revalidate", cartcontrollers.CartRevalidate(deps.Carts, deps.Catalog, logg))
			r.With(idempotent).Post("/items", cartcontrollers.CartAddItem(deps.Carts, deps.Catalog, logg))
			r.Route("/items/{productId}/{variantId}", func(r chi.Router) {
				r.Put("/", cartcontrollers.CartSetQuantity(deps.Carts, logg))
				r.Delete("/", cartcontrollers.CartRemoveItem(deps.Carts, logg))
				r.Post("/increment", cartcontrollers.CartIncrementItem(deps.Carts, logg))
				r.Post("/decrement", cartcontrollers.CartDecrementItem(deps.Carts, logg))
			})
		})

		r.With(middleware.RequireArea(access.AreaCart, logg)).Post("/checkout/quote", controllers.CheckoutQuote(deps.Checkout, logg))
		r.With(middleware.RequireArea(access.AreaCheckout, logg), idempotent).Post("/checkout", controllers.CheckoutPlace(deps.Checkout, logg))

		r.With(
			middleware.RequireArea(access.AreaCart, logg),
			middleware.RateLimit(couponPolicy, deps.Redis, logg),
		).Post("/coupons/validate", controllers.CouponValidate(deps.Checkout, logg))

		r.With(middleware.RequireArea(access.AreaSalesDashboard, logg)).Get("/sales/dashboard", controllers.SalesDashboard(deps.API, logg))
		r.With(middleware.RequireArea(access.AreaDeliveryDashboard, logg)).Get("/delivery/stats", controllers.DeliveryStats(deps.API, logg))
	})

	return r
}
