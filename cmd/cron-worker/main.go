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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/supplydesk-backend/internal/cron"
	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
	"github.com/angelmondragon/supplydesk-backend/pkg/migrate"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "cron worker exited", err)
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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind, env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	jobs, err := registerJobs(cfg.Cron, logg, dbClient)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")
	err = service.Run(ctx)
	logg.Info(ctx, "cron worker stopped")
	return err
}

func registerJobs(cfg config.CronConfig, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
		ReadMaxAge: cfg.ReadNotificationMaxAge,
		MaxAge:     cfg.NotificationMaxAge,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.PublishedOutboxRetention,
	})
	if err != nil {
		return nil, err
	}

	jobs := cron.NewRegistry()
	for _, job := range []cron.Job{cleanup, retention} {
		if err := jobs.Register(job); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
