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
	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
	"github.com/angelmondragon/supplydesk-backend/pkg/migrate"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/relay"
	"github.com/angelmondragon/supplydesk-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "outbox publisher exited", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Service.Kind = serviceKind

	logg := logger.ForService(serviceKind, cfg.App)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	dbClient, err := db.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer pubsubClient.Close()
	sender := pubsub.NewSender(pubsubClient)
	defer sender.Stop()

	if err := awaitDependencies(ctx, logg, dbClient.Ping, pubsubClient.Ping); err != nil {
		return err
	}

	resolver, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	r, err := relay.New(relay.Deps{
		Tx:          dbClient,
		Store:       outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Resolver:    resolver,
		Sender:      sender,
		Metrics:     metrics.NewOutboxMetrics(reg),
		Logger:      logg,
	}, relay.Options{
		BatchSize:      cfg.Outbox.BatchSize,
		MaxAttempts:    cfg.Outbox.MaxAttempts,
		PollInterval:   cfg.Outbox.PollInterval,
		MaxBackoff:     cfg.Outbox.MaxBackoff,
		PublishTimeout: cfg.Outbox.PublishTimeout,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting outbox publisher")
	err = r.Run(ctx)
	logg.Info(ctx, "outbox publisher stopped")
	return err
}

// awaitDependencies pings each dependency with bounded exponential retries.
func awaitDependencies(ctx context.Context, logg *logger.Logger, pings ...func(context.Context) error) error {
	for _, ping := range pings {
		backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := ping(ctx); err != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "dependency not ready")
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
