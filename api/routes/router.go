package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/literature-backend/api/controllers"
	"github.com/angelmondragon/literature-backend/api/middleware"
	"github.com/angelmondragon/literature-backend/internal/auth"
	"github.com/angelmondragon/literature-backend/internal/inventory"
	"github.com/angelmondragon/literature-backend/internal/literature"
	"github.com/angelmondragon/literature-backend/internal/notifications"
	"github.com/angelmondragon/literature-backend/internal/orders"
	"github.com/angelmondragon/literature-backend/internal/organizations"
	"github.com/angelmondragon/literature-backend/internal/reports"
	"github.com/angelmondragon/literature-backend/internal/transactions"
	"github.com/angelmondragon/literature-backend/internal/users"
	"github.com/angelmondragon/literature-backend/pkg/auth/session"
	"github.com/angelmondragon/literature-backend/pkg/config"
	"github.com/angelmondragon/literature-backend/pkg/db"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/redis"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth          auth.Service
	Users         users.Service
	Organizations organizations.Service
	Literature    literature.Service
	Inventory     inventory.Service
	Orders        orders.Service
	Transactions  transactions.Service
	Notifications notifications.Service
	Reports       reports.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Tracing("literature-"+cfg.Service.Kind),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	writePolicy := middleware.OrganizationWriteRateLimitPolicy(
		cfg.RateLimit.OrgWriteWindow,
		cfg.RateLimit.OrgWriteLimit,
	)

	ready := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		ready["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, rateLimitStore(redisClient), logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RateLimit(writePolicy, rateLimitStore(redisClient), logg))
		r.Use(middleware.Idempotency(idempotencyStore(redisClient), logg))

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", controllers.ListOrganizations(svc.Organizations, logg))
			r.Post("/", controllers.CreateOrganization(svc.Organizations, logg))
			r.Get("/{organizationId}", controllers.GetOrganization(svc.Organizations, logg))
			r.Patch("/{organizationId}", controllers.UpdateOrganization(svc.Organizations, logg))
			r.Delete("/{organizationId}", controllers.DeactivateOrganization(svc.Organizations, logg))
			r.Get("/{organizationId}/suppliers", controllers.ListOrganizationSuppliers(svc.Organizations, logg))
		})

		r.Route("/literature", func(r chi.Router) {
			r.Get("/", controllers.ListLiterature(svc.Literature, logg))
			r.Post("/", controllers.CreateLiterature(svc.Literature, logg))
			r.Get("/{literatureId}", controllers.GetLiterature(svc.Literature, logg))
			r.Patch("/{literatureId}", controllers.UpdateLiterature(svc.Literature, logg))
			r.Delete("/{literatureId}", controllers.DeactivateLiterature(svc.Literature, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.With(middleware.RequirePermission(enums.PermInventoryView, logg)).Get("/", controllers.ListInventory(svc.Inventory, logg))
			r.With(middleware.RequirePermission(enums.PermInventoryView, logg)).Get("/{organizationId}/{literatureId}", controllers.GetInventoryRecord(svc.Inventory, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(enums.PermInventoryManage, logg))
				r.Post("/reserve", controllers.ReserveInventory(svc.Inventory, logg))
				r.Post("/release", controllers.ReleaseInventory(svc.Inventory, logg))
				r.Post("/adjust", controllers.AdjustInventory(svc.Inventory, logg))
				r.Post("/transfer", controllers.TransferInventory(svc.Inventory, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svc.Orders, logg))
			r.Post("/", controllers.CreateOrder(svc.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(svc.Orders, logg))
				r.Patch("/", controllers.UpdateOrder(svc.Orders, logg))
				r.Delete("/", controllers.DeleteOrder(svc.Orders, logg))
				r.Post("/status", controllers.ChangeOrderStatus(svc.Orders, logg))
				r.Post("/lock", controllers.LockOrder(svc.Orders, logg))
				r.Post("/unlock", controllers.UnlockOrder(svc.Orders, logg))
				r.Post("/items", controllers.AddOrderItem(svc.Orders, logg))
				r.Patch("/items/{itemId}", controllers.UpdateOrderItem(svc.Orders, logg))
				r.Delete("/items/{itemId}", controllers.RemoveOrderItem(svc.Orders, logg))
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(middleware.RequirePermission(enums.PermTransactionsView, logg)).Get("/", controllers.ListTransactions(svc.Transactions, logg))
			r.With(middleware.RequirePermission(enums.PermTransactionsView, logg)).Get("/{transactionId}", controllers.GetTransaction(svc.Transactions, logg))
			r.With(middleware.RequirePermission(enums.PermTransactionsManage, logg)).Post("/", controllers.CreateTransaction(svc.Transactions, logg))
			r.With(middleware.RequirePermission(enums.PermTransactionsManage, logg)).Post("/{transactionId}/reverse", controllers.ReverseTransaction(svc.Transactions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequirePermission(enums.PermReportsView, logg))
			r.Get("/inventory", controllers.InventoryReport(svc.Reports, logg))
			r.Get("/movements", controllers.MovementReport(svc.Reports, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.CurrentUser(svc.Users, logg))
			r.Get("/", controllers.ListUsers(svc.Users, logg))
			r.Post("/", controllers.CreateUser(svc.Users, logg))
			r.Get("/{userId}", controllers.GetUser(svc.Users, logg))
			r.Patch("/{userId}", controllers.UpdateUser(svc.Users, logg))
			r.Delete("/{userId}", controllers.DeactivateUser(svc.Users, logg))
		})
	})

	return r
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// A nil *redis.Client must reach the middleware as a nil interface so the
// limiter and idempotency layers switch themselves off.
func rateLimitStore(client *redis.Client) rateLimiter {
	if client == nil {
		return nil
	}
	return client
}

func idempotencyStore(client *redis.Client) redis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}
