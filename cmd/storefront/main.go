package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kingshoppers/storefront/api/routes"
	"github.com/kingshoppers/storefront/internal/cart"
	"github.com/kingshoppers/storefront/internal/cartsync"
	"github.com/kingshoppers/storefront/internal/catalog"
	"github.com/kingshoppers/storefront/internal/checkout"
	"github.com/kingshoppers/storefront/pkg/config"
	"github.com/kingshoppers/storefront/pkg/db"
	"github.com/kingshoppers/storefront/pkg/enums"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
	"github.com/kingshoppers/storefront/pkg/migrate"
	"github.com/kingshoppers/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	deps := routes.Dependencies{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
	}

	var store cart.Persister
	if cfg.Cart.UsesSQL() {
		dbClient, dbErr := db.New(ctx, cfg.DB, logg)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
		sqlStore, storeErr := cart.NewSQLStore(dbClient.DB())
		if storeErr != nil {
			return storeErr
		}
		store = sqlStore
		deps.DB = dbClient
	} else {
		redisStore, storeErr := cart.NewRedisStore(redisClient, cfg.Cart.TTL)
		if storeErr != nil {
			return storeErr
		}
		store = redisStore
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(registry)
	deps.Gatherer = registry

	formatter, err := cart.NewFormatter(cfg.Cart.Currency, cfg.Cart.Locale)
	if err != nil {
		return err
	}
	taxMode, err := enums.ParseTaxMode(cfg.Cart.TaxMode)
	if err != nil {
		return err
	}

	apiClient, err := kingapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return err
	}
	deps.API = apiClient

	carts, err := cart.NewService(cart.ServiceParams{
		Store:     store,
		Metrics:   cartMetrics,
		Formatter: formatter,
		TaxMode:   taxMode,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	deps.Carts = carts

	catalogService, err := catalog.NewService(apiClient)
	if err != nil {
		return err
	}
	deps.Catalog = catalogService

	deps.Checkout, err = checkout.NewService(checkout.Params{
		Carts:     carts,
		API:       apiClient,
		Formatter: formatter,
		Metrics:   cartMetrics,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Sync.Enabled {
		worker, workerErr := cartsync.NewWorker(cartsync.Params{
			Client:    apiClient,
			Marker:    carts,
			Logger:    logg,
			Metrics:   metrics.NewSyncMetrics(registry),
			QueueSize: cfg.Sync.QueueSize,
			Timeout:   cfg.Sync.Timeout,
		})
		if workerErr != nil {
			return workerErr
		}
		carts.AttachMirror(worker)
		group.Go(func() error {
			return runSyncWorker(groupCtx, worker.Run, logg)
		})
	}

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"cart_store": cfg.Cart.Store,
		"tax_mode":   taxMode.String(),
		"sync":       cfg.Sync.Enabled,
	})
	logg.Info(logCtx, "starting storefront server")

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(logCtx, "storefront shut down gracefully")
	return nil
}

// runSyncWorker runs the mirror worker until ctx ends. Pushes that fail
// during the final drain are logged; they never fail shutdown.
func runSyncWorker(ctx context.Context, run func(context.Context) error, logg *logger.Logger) error {
	if err := run(ctx); err != nil {
		logg.Error(ctx, "cart sync drain failed", err)
	}
	return nil
}
