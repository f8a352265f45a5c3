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

	"github.com/angelmondragon/supplydesk-backend/api/middleware"
	"github.com/angelmondragon/supplydesk-backend/api/routes"
	"github.com/angelmondragon/supplydesk-backend/internal/auth"
	"github.com/angelmondragon/supplydesk-backend/internal/categories"
	"github.com/angelmondragon/supplydesk-backend/internal/departments"
	"github.com/angelmondragon/supplydesk-backend/internal/inventory"
	"github.com/angelmondragon/supplydesk-backend/internal/limitations"
	"github.com/angelmondragon/supplydesk-backend/internal/newitems"
	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/internal/reports"
	"github.com/angelmondragon/supplydesk-backend/internal/requests"
	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	"github.com/angelmondragon/supplydesk-backend/internal/users"
	"github.com/angelmondragon/supplydesk-backend/pkg/auth/session"
	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
	"github.com/angelmondragon/supplydesk-backend/pkg/migrate"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/redis"
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
	cfg.Service.Kind = "api"

	logg = logger.ForService("api", cfg.App)

	dbClient, err := db.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	params, err := buildServices(cfg, logg, dbClient, sessionManager, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	params.Config = cfg
	params.Logger = logg
	params.DB = dbClient
	params.Redis = redisClient
	params.Sessions = sessionManager
	params.Gatherer = registry
	params.HTTP = metrics.NewHTTPMetrics(registry)

	throttleStore, err := redisClient.LimiterStore("api")
	if err != nil {
		logg.Error(context.Background(), "failed to create throttle store", err)
		os.Exit(1)
	}
	loginStore, err := redisClient.LimiterStore("login")
	if err != nil {
		logg.Error(context.Background(), "failed to create login limiter store", err)
		os.Exit(1)
	}
	params.LoginGuard = middleware.NewLoginGuard(cfg.AuthRateLimit, loginStore)
	if params.Throttle, err = middleware.NewThrottle(cfg.Throttle.Rate, throttleStore); err != nil {
		logg.Error(context.Background(), "invalid api throttle rate", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, reg prometheus.Registerer) (routes.Params, error) {
	var p routes.Params
	conn := dbClient.DB()

	loc, err := cfg.Usage.Location()
	if err != nil {
		return p, err
	}
	mode, err := enums.ParseUsageCountingMode(cfg.Usage.CountingMode)
	if err != nil {
		return p, err
	}

	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	requestMetrics := metrics.NewRequestMetrics(reg)
	userRepo := users.NewRepository(conn)

	if p.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	}); err != nil {
		return p, err
	}
	if p.Users, err = users.NewService(users.ServiceParams{
		Repo:           userRepo,
		Sessions:       sessions,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return p, err
	}

	inventoryRepo := inventory.NewRepository(conn)
	if p.Inventory, err = inventory.NewService(inventoryRepo, dbClient, emitter, logg); err != nil {
		return p, err
	}
	if p.Categories, err = categories.NewService(categories.NewRepository(conn), inventoryRepo, dbClient, logg); err != nil {
		return p, err
	}
	if p.Departments, err = departments.NewService(conn); err != nil {
		return p, err
	}
	if p.Limitations, err = limitations.NewService(limitations.NewRepository(conn), p.Inventory, logg); err != nil {
		return p, err
	}
	if p.Usage, err = usage.NewService(usage.ServiceParams{
		Repo:         usage.NewRepository(conn),
		TxRunner:     dbClient,
		CountingMode: mode,
		Location:     loc,
		Metrics:      requestMetrics,
		Logger:       logg,
	}); err != nil {
		return p, err
	}
	if p.Notifications, err = notifications.NewService(notifications.NewRepository(conn), dbClient, emitter, userRepo); err != nil {
		return p, err
	}
	if p.Requests, err = requests.NewService(requests.ServiceParams{
		Repo:          requests.NewRepository(conn),
		TxRunner:      dbClient,
		Inventory:     p.Inventory,
		Usage:         p.Usage,
		Notifications: p.Notifications,
		Directory:     userRepo,
		Outbox:        emitter,
		Metrics:       requestMetrics,
		Logger:        logg,
	}); err != nil {
		return p, err
	}
	if p.NewItems, err = newitems.NewService(newitems.ServiceParams{
		Repo:          newitems.NewRepository(conn),
		TxRunner:      dbClient,
		Directory:     userRepo,
		Notifications: p.Notifications,
		Logger:        logg,
	}); err != nil {
		return p, err
	}
	if p.Reports, err = reports.NewService(reports.NewRepository(conn), loc); err != nil {
		return p, err
	}
	return p, nil
}
