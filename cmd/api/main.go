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

	"github.com/angelmondragon/literature-backend/api/routes"
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
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/metrics"
	"github.com/angelmondragon/literature-backend/pkg/migrate"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/redis"
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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	services, dispatcher, err := buildServices(cfg, logg, dbClient, sessionManager, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, prometheus.DefaultGatherer, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		if err := dispatcher.Drain(shutdownCtx); err != nil {
			logg.Error(ctx, "notification drain incomplete", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager, reg prometheus.Registerer) (routes.Services, *notifications.AsyncDispatcher, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	domainMetrics := metrics.NewDomainMetrics(reg)

	organizationsRepo := organizations.NewRepository(conn)
	organizationsSvc, err := organizations.NewService(organizationsRepo, dbClient, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	usersRepo := users.NewRepository(conn)
	usersSvc, err := users.NewService(usersRepo, organizationsRepo, cfg.Password, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, nil, err
	}

	literatureRepo := literature.NewRepository(conn)
	literatureSvc, err := literature.NewService(literatureRepo)
	if err != nil {
		return routes.Services{}, nil, err
	}

	txRepo := transactions.NewRepository(conn)
	ledger, err := transactions.NewLedger(txRepo, dbClient)
	if err != nil {
		return routes.Services{}, nil, err
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), ledger, outboxSvc, dbClient, domainMetrics, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	transactionsSvc, err := transactions.NewService(txRepo, ledger, inventorySvc, outboxSvc, dbClient, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn), outboxSvc, dbClient, logg)
	if err != nil {
		return routes.Services{}, nil, err
	}

	dispatcher, err := notifications.NewAsyncDispatcher(notificationsSvc, logg, cfg.Notifications.DispatchTimeout)
	if err != nil {
		return routes.Services{}, nil, err
	}

	ordersSvc, err := orders.NewService(orders.Deps{
		Repo:          orders.NewRepository(conn),
		Organizations: organizationsSvc,
		Literature:    literatureRepo,
		Inventory:     inventorySvc,
		Ledger:        ledger,
		Outbox:        outboxSvc,
		Notifications: dispatcher,
		Metrics:       domainMetrics,
		Tx:            dbClient,
		Logger:        logg,
		NumberRetries: cfg.Orders.NumberRetries,
	})
	if err != nil {
		return routes.Services{}, nil, err
	}

	reportsSvc, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		return routes.Services{}, nil, err
	}

	return routes.Services{
		Auth:          authSvc,
		Users:         usersSvc,
		Organizations: organizationsSvc,
		Literature:    literatureSvc,
		Inventory:     inventorySvc,
		Orders:        ordersSvc,
		Transactions:  transactionsSvc,
		Notifications: notificationsSvc,
		Reports:       reportsSvc,
	}, dispatcher, nil
}
