package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextcart/storefront-backend/api/controllers"
	"github.com/nextcart/storefront-backend/api/middleware"
	"github.com/nextcart/storefront-backend/internal/auth"
	"github.com/nextcart/storefront-backend/internal/catalog"
	checkoutsvc "github.com/nextcart/storefront-backend/internal/checkout"
	"github.com/nextcart/storefront-backend/internal/orders"
	"github.com/nextcart/storefront-backend/pkg/auth/session"
	"github.com/nextcart/storefront-backend/pkg/config"
	"github.com/nextcart/storefront-backend/pkg/db"
	"github.com/nextcart/storefront-backend/pkg/logger"
	"github.com/nextcart/storefront-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  session.AccessSessionChecker
	AuthService     auth.Service
	RegisterService auth.RegisterService
	CatalogService  catalog.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	Metrics         prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
		r.Get("/featured", controllers.FeaturedProducts(deps.CatalogService, logg))
		r.Get("/search", controllers.SearchProducts(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.CatalogService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
			r.Post("/", controllers.CreateProduct(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(deps.CatalogService, logg))
			r.Delete("/{productId}", controllers.DeleteProduct(deps.CatalogService, logg))
		})
	})

	r.With(middleware.OptionalAuth(cfg.JWT, deps.SessionManager, logg)).
		Get("/api/v1/orders", controllers.ListMyOrders(deps.OrdersService, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Get("/api/v1/orders/{orderId}", controllers.GetMyOrder(deps.OrdersService, logg))
		r.With(middleware.Idempotency(deps.Redis, logg)).
			Post("/api/v1/checkout", controllers.Checkout(deps.CheckoutService, logg))
	})

	return r
}
