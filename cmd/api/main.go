package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/microip/storefront-backend/api/routes"
	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/catalog"
	"github.com/microip/storefront-backend/internal/checkout"
	"github.com/microip/storefront-backend/internal/cron"
	"github.com/microip/storefront-backend/internal/health"
	"github.com/microip/storefront-backend/internal/payments"
	"github.com/microip/storefront-backend/internal/scheduling"
	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/internal/wishlist"
	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/instance"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/metrics"
	"github.com/microip/storefront-backend/pkg/redis"
	"github.com/microip/storefront-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Version:     cfg.App.Version,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bundle, err := storage.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := bundle.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	products, err := catalog.Default()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)
	maintenanceMetrics := metrics.NewMaintenanceMetrics(reg)

	widgets, err := scheduling.NewFactory(cfg.Scheduling, logg)
	if err != nil {
		return err
	}

	carts := cart.NewRegistry(cfg.Session.TTL)
	wishlists := wishlist.NewRegistry(bundle.Backend, cfg.Session.TTL, logg)
	guards := checkout.NewManager(checkout.Options{
		Carts:   carts,
		Flags:   bundle.Backend,
		FlagTTL: cfg.Session.TTL,
		Widgets: widgets,
		Metrics: checkoutMetrics,
		Logger:  logg,
		IdleTTL: cfg.Session.TTL,
	})
	defer guards.Close()

	paymentService := payments.NewService(paymentProvider(ctx, cfg, logg), cfg.Stripe.Currency(), checkoutMetrics, logg)

	reporter := health.New(cfg.App.Env, cfg.App.Version)
	reporter.Register("storage", bundle.Backend.Ping)
	if bundle.Redis != nil {
		reporter.Register("redis", bundle.Redis.Ping)
	}

	services, err := maintenanceServices(cfg, logg, bundle, maintenanceMetrics,
		cron.SweepTarget{Name: "carts", Sweeper: carts},
		cron.SweepTarget{Name: "wishlists", Sweeper: wishlists},
		cron.SweepTarget{Name: "checkout", Sweeper: guards},
	)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			reporter,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			products,
			carts,
			wishlists,
			guards,
			paymentService,
			bundle.Redis,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func(svc *cron.Service) {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil {
				logg.Error(ctx, "maintenance stopped", err)
			}
		}(svc)
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"env":             cfg.App.Env,
			"addr":            addr,
			"storage_backend": cfg.Storage.Backend(),
			"instance":        instance.GetID(),
		}), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel()
			wg.Wait()
			return err
		}
	case <-ctx.Done():
		logg.Info(context.Background(), "shutdown signal received")
	}

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
	wg.Wait()
	logg.Info(context.Background(), "api server shut down gracefully")
	return nil
}

// paymentProvider returns nil when Stripe is not configured so intents fail with a
// configuration error instead of the process refusing to boot.
func paymentProvider(ctx context.Context, cfg *config.Config, logg *logger.Logger) payments.Provider {
	client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe disabled; payment intents will fail")
		return nil
	}
	return client
}

// maintenanceServices builds the session sweep and, for backends that need it, the
// expired entry purge. Only the purge of a shared SQL store is coordinated through redis.
func maintenanceServices(
	cfg *config.Config,
	logg *logger.Logger,
	bundle *storage.Bundle,
	m *metrics.MaintenanceMetrics,
	targets ...cron.SweepTarget,
) ([]*cron.Service, error) {
	sweepJob, err := cron.NewSessionSweepJob(logg, targets...)
	if err != nil {
		return nil, err
	}
	sweeper, err := cron.NewService(cron.ServiceParams{
		Name:     "session_sweep",
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     cron.NewLocalLock(),
		Metrics:  m,
		Interval: cfg.Maintenance.SweepInterval,
	})
	if err != nil {
		return nil, err
	}
	services := []*cron.Service{sweeper}

	purger, ok := bundle.Backend.(storage.Purger)
	if !ok {
		return services, nil
	}
	purgeJob, err := cron.NewStoragePurgeJob(purger)
	if err != nil {
		return nil, err
	}
	var lock cron.Lock = cron.NewLocalLock()
	if _, shared := bundle.Backend.(*storage.SQL); shared && bundle.Redis != nil {
		lock, err = cron.NewRedisLock(bundle.Redis, redis.BuildKey("maintenance", cron.JobStoragePurge), cfg.Maintenance.LockTTL)
		if err != nil {
			return nil, err
		}
	}
	purgeService, err := cron.NewService(cron.ServiceParams{
		Name:     cron.JobStoragePurge,
		Logger:   logg,
		Registry: cron.NewRegistry(purgeJob),
		Lock:     lock,
		Metrics:  m,
		Interval: cfg.Maintenance.PurgeInterval,
	})
	if err != nil {
		return nil, err
	}
	return append(services, purgeService), nil
}
