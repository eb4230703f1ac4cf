package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storeloom/console/internal/config"
	"github.com/storeloom/console/internal/event"
	"github.com/storeloom/console/internal/gateway"
	handler "github.com/storeloom/console/internal/handler/http"
	"github.com/storeloom/console/internal/service"
	"github.com/storeloom/console/internal/session"
	"github.com/storeloom/console/pkg/health"
	pkgkafka "github.com/storeloom/console/pkg/kafka"
	"github.com/storeloom/console/pkg/tracing"
)

// App wires together all dependencies and runs the merchant console.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	redis      *redis.Client
	producer   *pkgkafka.Producer
	categories *service.CategoryService
	products   *service.ProductService
	httpServer *http.Server

	shutdownTracing func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing.
	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "console",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Redis session store, shared with the auth service.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	resolver := session.NewRedisResolver(redisClient)
	logger.Info("redis session store configured", slog.String("addr", cfg.RedisAddr))

	// Kafka producer for catalog change events.
	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	events := event.NewPublisher(producer, cfg.KafkaCatalogTopic, logger)

	// Upstream gateway and the catalog services.
	gw := gateway.New(gateway.Config{
		BaseURL:      cfg.PlatformBaseURL,
		Timeout:      cfg.PlatformTimeout,
		ServiceToken: cfg.PlatformToken,
	}, resolver, logger)

	categories := service.NewCategoryService(gw.Categories(), events, logger)
	products := service.NewProductService(gw.Products(), events, logger)

	// Health checks. The platform and Kafka are non-critical: the console
	// can still serve its in-memory state while they are degraded.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return resolver.Ping(ctx)
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		Categories:     categories,
		Products:       products,
		Resolver:       resolver,
		HealthHandler:  healthHandler,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		redis:           redisClient,
		producer:        producer,
		categories:      categories,
		products:        products,
		httpServer:      httpServer,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.categories.Close()
	a.products.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.shutdownTracing(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
