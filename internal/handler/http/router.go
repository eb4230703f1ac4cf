package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	consolemw "github.com/storeloom/console/internal/middleware"
	"github.com/storeloom/console/internal/service"
	"github.com/storeloom/console/internal/session"
	"github.com/storeloom/console/pkg/health"
	"github.com/storeloom/console/pkg/middleware"
)

// RouterConfig carries the router's dependencies and settings.
type RouterConfig struct {
	Categories     *service.CategoryService
	Products       *service.ProductService
	Resolver       session.Resolver
	HealthHandler  *health.Handler
	JWTSecret      string
	RateLimitRPS   int
	RateLimitBurst int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all console routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
	}

	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("console"))
	r.Use(consolemw.Auth(cfg.JWTSecret, cfg.Logger))
	r.Use(consolemw.ResolveStore(cfg.Resolver))
	r.Use(consolemw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))

	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	categoryHandler := NewCategoryHandler(cfg.Categories, cfg.Logger)
	r.Route("/api/v1/catalog/categories", func(r chi.Router) {
		r.Get("/", categoryHandler.List)
		r.Get("/tree", categoryHandler.Tree)
		r.Get("/state", categoryHandler.State)
		r.Post("/", categoryHandler.Create)
		r.Put("/reorder", categoryHandler.Reorder)
		r.Delete("/errors", categoryHandler.ClearErrors)
		r.Delete("/errors/{family}", categoryHandler.ClearError)
		r.Get("/{id}", categoryHandler.Get)
		r.Get("/{id}/breadcrumb", categoryHandler.Breadcrumb)
		r.Patch("/{id}", categoryHandler.Update)
		r.Delete("/{id}", categoryHandler.Delete)
		r.Put("/{id}/parent", categoryHandler.Reparent)
	})

	productHandler := NewProductHandler(cfg.Products, cfg.Logger)
	r.Route("/api/v1/catalog/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Get("/counts", productHandler.Counts)
		r.Get("/state", productHandler.State)
		r.Get("/views/{view}", productHandler.View)
		r.Post("/", productHandler.Create)
		r.Post("/bulk-delete", productHandler.BulkDelete)
		r.Post("/bulk-update", productHandler.BulkUpdate)
		r.Delete("/errors", productHandler.ClearErrors)
		r.Delete("/errors/{family}", productHandler.ClearError)
		r.Get("/{id}", productHandler.Get)
		r.Patch("/{id}", productHandler.Update)
		r.Delete("/{id}", productHandler.Delete)
	})

	return r
}
