package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/angelmondragon/supplydesk-backend/api/controllers"
	"github.com/angelmondragon/supplydesk-backend/api/middleware"
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
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/supplydesk-backend/pkg/redis"
)

type redisStore interface {
	pkgredis.IdempotencyStore
	controllers.Pinger
}

// Params carries everything the API router mounts.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    redisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth          auth.Service
	Users         users.Service
	Inventory     inventory.Service
	Categories    categories.Service
	Departments   departments.Service
	Requests      requests.Service
	Usage         usage.Service
	Limitations   limitations.Service
	Notifications notifications.Service
	NewItems      newitems.Service
	Reports       reports.Service

	Throttle   *limiter.Limiter
	LoginGuard middleware.LoginGuard
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTP),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}, logg))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(p.LoginGuard, logg)).
			Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.Throttle(p.Throttle, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/me", controllers.GetMe(p.Users, logg))
		r.Put("/me/password", controllers.ChangeMyPassword(p.Users, logg))
		r.Put("/me/push-token", controllers.RegisterMyPushToken(p.Users, logg))

		r.Get("/inventory", controllers.ListInventory(p.Inventory, logg))
		r.Get("/inventory/{itemId}", controllers.GetInventoryItem(p.Inventory, logg))
		r.Get("/categories", controllers.ListCategories(p.Categories, logg))
		r.Get("/departments", controllers.ListDepartments(p.Departments, logg))

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.SubmitRequest(p.Requests, logg))
			r.Post("/bulk", controllers.SubmitBulkRequest(p.Requests, logg))
			r.Get("/", controllers.ListRequests(p.Requests, logg))
			r.Get("/groups/{groupId}", controllers.GetRequestGroup(p.Requests, logg))
			r.Get("/{requestId}", controllers.GetRequest(p.Requests, logg))
			r.Post("/{requestId}/cancel", controllers.TransitionRequest(p.Requests, enums.TransitionCancel, logg))
		})

		r.Get("/usage/check", controllers.CheckUsage(p.Usage, logg))
		r.Get("/usage/me", controllers.MyMonthlyUsage(p.Usage, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		r.Post("/new-item-requests", controllers.SubmitNewItemRequest(p.NewItems, logg))
		r.Get("/new-item-requests", controllers.ListNewItemRequests(p.NewItems, logg))
		r.Get("/dashboard", controllers.EmployeeDashboard(p.Reports, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			mountAdmin(r, p)
		})
	})

	return r
}

func mountAdmin(r chi.Router, p Params) {
	logg := p.Logger

	r.Route("/inventory", func(r chi.Router) {
		r.Post("/", controllers.CreateInventoryItem(p.Inventory, logg))
		r.Get("/low-stock", controllers.ListLowStock(p.Inventory, logg))
		r.Put("/{itemId}", controllers.UpdateInventoryItem(p.Inventory, logg))
		r.Put("/{itemId}/stock", controllers.AdjustInventoryStock(p.Inventory, logg))
		r.Delete("/{itemId}", controllers.DeleteInventoryItem(p.Inventory, logg))
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", controllers.CreateCategory(p.Categories, logg))
		r.Put("/{categoryId}", controllers.UpdateCategory(p.Categories, logg))
		r.Delete("/{categoryId}", controllers.DeleteCategory(p.Categories, logg))
	})

	r.Route("/departments", func(r chi.Router) {
		r.Post("/", controllers.CreateDepartment(p.Departments, logg))
		r.Delete("/{departmentId}", controllers.DeleteDepartment(p.Departments, logg))
	})

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", controllers.ListRequests(p.Requests, logg))
		r.Post("/{requestId}/approve", controllers.TransitionRequest(p.Requests, enums.TransitionApprove, logg))
		r.Post("/{requestId}/reject", controllers.TransitionRequest(p.Requests, enums.TransitionReject, logg))
		r.Post("/{requestId}/fulfill", controllers.TransitionRequest(p.Requests, enums.TransitionFulfill, logg))
		r.Delete("/{requestId}", controllers.DeleteRequest(p.Requests, logg))
		r.Post("/groups/{groupId}/approve", controllers.TransitionRequestGroup(p.Requests, enums.TransitionApprove, logg))
		r.Post("/groups/{groupId}/reject", controllers.TransitionRequestGroup(p.Requests, enums.TransitionReject, logg))
		r.Post("/groups/{groupId}/fulfill", controllers.TransitionRequestGroup(p.Requests, enums.TransitionFulfill, logg))
	})

	r.Route("/limitations", func(r chi.Router) {
		r.Get("/", controllers.ListLimitations(p.Limitations, logg))
		r.Post("/", controllers.CreateLimitation(p.Limitations, logg))
		r.Put("/{limitationId}", controllers.UpdateLimitation(p.Limitations, logg))
		r.Delete("/{limitationId}", controllers.DeleteLimitation(p.Limitations, logg))
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", controllers.ListUsers(p.Users, logg))
		r.Post("/", controllers.CreateUser(p.Users, logg))
		r.Put("/{userId}", controllers.UpdateUser(p.Users, logg))
		r.Put("/{userId}/role", controllers.SetUserRole(p.Users, logg))
		r.Post("/{userId}/reset-password", controllers.ResetUserPassword(p.Users, logg))
		r.Delete("/{userId}", controllers.DeleteUser(p.Users, logg))
	})

	r.Route("/new-item-requests", func(r chi.Router) {
		r.Get("/", controllers.ListNewItemRequests(p.NewItems, logg))
		r.Post("/{newItemRequestId}/approve", controllers.DecideNewItemRequest(p.NewItems, true, logg))
		r.Post("/{newItemRequestId}/reject", controllers.DecideNewItemRequest(p.NewItems, false, logg))
	})

	r.Get("/reports/summary", controllers.ReportSummary(p.Reports, logg))
	r.Get("/dashboard", controllers.AdminDashboard(p.Reports, logg))
}
