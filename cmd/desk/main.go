package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-desk/internal/app"
	audithttp "github.com/odyssey-erp/odyssey-desk/internal/audit/http"
	"github.com/odyssey-erp/odyssey-desk/internal/auth"
	"github.com/odyssey-erp/odyssey-desk/internal/observability"
	"github.com/odyssey-erp/odyssey-desk/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-desk/internal/platform/errutil"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/reports"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/tickets"
	"github.com/odyssey-erp/odyssey-desk/internal/users"
	"github.com/odyssey-erp/odyssey-desk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		logger.Error("open storage", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer storage.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var querier rbac.Querier
	if storage.Pool != nil {
		querier = storage.Pool
	}
	catalog, reloader, err := app.LoadCatalog(ctx, cfg, querier, logger)
	if err != nil {
		errutil.LogError(logger, "load role table", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	core := app.NewCore(storage.Backend, catalog, logger, metrics)
	if err := app.EnsureAdmin(ctx, cfg, core.Users.Directory(), logger); err != nil {
		logger.Error("bootstrap admin", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "desk_session", cfg.SessionTTL, cfg.IsProduction())
	rbacMiddleware := core.Middleware(logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    auth.NewHandler(logger, auth.NewService(core.Users.Directory()), sessionManager, rbacMiddleware),
		TicketsHandler: tickets.NewHandler(logger, core.Tickets, rbacMiddleware),
		ReportsHandler: reports.NewHandler(logger, core.Reports, rbacMiddleware),
		UsersHandler:   users.NewHandler(logger, core.Users, rbacMiddleware),
		RolesHandler:   rbac.NewHandler(logger, catalog, reloader, rbacMiddleware),
		AuditHandler:   audithttp.NewHandler(logger, core.Audit, rbacMiddleware),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
