package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kart-checkout/internal/cache"
	"kart-checkout/internal/checkout"
	"kart-checkout/internal/clock"
	"kart-checkout/internal/config"
	"kart-checkout/internal/coupon"
	"kart-checkout/internal/database"
	"kart-checkout/internal/handler"
	"kart-checkout/internal/metrics"
	"kart-checkout/internal/repository"
	"kart-checkout/internal/router"
	"kart-checkout/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting kart-checkout API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Coupon catalogue, optionally behind the Redis cache
	catalog, err := newCatalog(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer func(client *redis.Client) {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis client")
			}
		}(redisClient)

		catalog = cache.NewCatalogCache(redisClient, catalog, cfg.Catalog.CacheTTLDuration(), logger)
	}

	// Initialize checkout engine
	cartRepo := repository.NewCartRepository(pool, logger)
	rules := coupon.NewRuleSet(cfg.Checkout.DeliveryFee, clock.NewRealClock(cfg.Checkout.Location()))

	checkoutService := service.NewCheckoutService(
		cartRepo,
		catalog,
		rules,
		service.Options{
			Session: checkout.Config{
				LookupConcurrency:  cfg.Checkout.LookupConcurrency,
				ReevaluateInterval: cfg.Checkout.ReevaluateInterval(),
			},
			SessionTTL: cfg.Checkout.SessionTTLDuration(),
		},
		m,
		logger,
	)
	defer checkoutService.Shutdown()

	// Initialize HTTP handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)

	// Initialize router
	mux := router.New(
		checkoutHandler,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		m,
		cfg.Auth.APIKey,
		logger,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Int64("delivery_fee", cfg.Checkout.DeliveryFee).
			Str("catalog_source", cfg.Catalog.Source).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Open event streams hold connections; end sessions first.
		checkoutService.Shutdown()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newCatalog builds the coupon catalogue for the configured source.
func newCatalog(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (coupon.Catalog, error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourceDB:
		logger.Info().Msg("serving coupon catalogue from the database")
		return repository.NewCouponRepository(pool, logger), nil

	case config.CatalogSourceFile:
		fileLoader := coupon.NewFileLoader(logger)
		var s3Loader coupon.Loader

		if cfg.S3.Enabled {
			loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
			if err != nil {
				logger.Warn().
					Err(err).
					Msg("failed to initialise S3 loader, falling back to local file system only")
			} else {
				s3Loader = loader
			}
		} else {
			logger.Info().Msg("using local file system for the coupon catalogue (S3 disabled)")
		}

		loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
		return coupon.NewLoaderCatalog(loader, cfg.Catalog.Path, logger), nil

	default:
		return nil, fmt.Errorf("unsupported catalog source: %s", cfg.Catalog.Source)
	}
}
