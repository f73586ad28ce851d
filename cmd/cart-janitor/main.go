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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kingshoppers/storefront/internal/cart"
	"github.com/kingshoppers/storefront/internal/janitor"
	"github.com/kingshoppers/storefront/pkg/config"
	"github.com/kingshoppers/storefront/pkg/db"
	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
	"github.com/kingshoppers/storefront/pkg/migrate"
	"github.com/kingshoppers/storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cart-janitor"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cart-janitor",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Cart.UsesSQL() {
		logg.Info(context.Background(), "cart store is redis; carts expire by ttl and the janitor has nothing to do")
		return
	}

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cart janitor stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	store, err := cart.NewSQLStore(dbClient.DB())
	if err != nil {
		return err
	}
	retention, err := janitor.NewCartRetentionJob(store, cfg.Janitor.Retention)
	if err != nil {
		return err
	}
	lock, err := janitor.NewRedisLock(redisClient, cfg.App.Env, cfg.Janitor.LockTTL)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	service, err := janitor.NewService(janitor.ServiceParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  metrics.NewJanitorMetrics(registry),
		Interval: cfg.Janitor.Interval,
		Jobs:     []janitor.Job{retention},
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Janitor.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"interval":  cfg.Janitor.Interval.String(),
		"retention": cfg.Janitor.Retention.String(),
		"lock_key":  lock.Key(),
	})
	logg.Info(ctx, "starting cart janitor")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cart janitor shutting down gracefully")
	return nil
}
