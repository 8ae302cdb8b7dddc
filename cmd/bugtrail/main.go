package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bugtrail/bugtrail/internal/activity"
	"github.com/bugtrail/bugtrail/internal/app"
	"github.com/bugtrail/bugtrail/internal/auth"
	"github.com/bugtrail/bugtrail/internal/bugs"
	"github.com/bugtrail/bugtrail/internal/notifications"
	"github.com/bugtrail/bugtrail/internal/observability"
	"github.com/bugtrail/bugtrail/internal/permissions"
	"github.com/bugtrail/bugtrail/internal/platform/cache"
	"github.com/bugtrail/bugtrail/internal/platform/db"
	"github.com/bugtrail/bugtrail/internal/projects"
	"github.com/bugtrail/bugtrail/internal/users"
	"github.com/bugtrail/bugtrail/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authMW := auth.Middleware{Tokens: tokens, Logger: logger}

	permStore := permissions.NewStore(pool)
	resolver := permissions.NewResolver(permStore, logger)
	guard := permissions.Middleware{Resolver: resolver, Logger: logger}
	permHandler := permissions.NewHandler(resolver, permStore, logger)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(userService, logger)

	projectRepo := projects.NewRepository(pool)

	activityStore := activity.NewStore(pool)
	activityCache := activity.NewCache(redisClient, cfg.CacheTTL)
	recorder := activity.NewRecorder(activityStore, activityCache, logger)
	activityHandler := activity.NewHandler(recorder, logger)

	notifStore := notifications.NewStore(pool)
	accepted, err := notifStore.AcceptedTypes(ctx)
	if err != nil {
		logger.Error("load accepted notification types", slog.Any("error", err))
		os.Exit(1)
	}
	compat := notifications.NewTypeCompat(accepted)

	emailClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := emailClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	selector := notifications.NewSelector(projectRepo, userRepo, logger)
	dispatcher := notifications.NewDispatcher(notifStore, compat, emailClient, metrics, logger)
	notifier := notifications.NewNotifier(selector, dispatcher, logger)
	notifHandler := notifications.NewHandler(notifStore, logger)

	projectService := projects.NewService(projectRepo, notifier, recorder, logger)
	projectHandler := projects.NewHandler(projectService, logger)

	bugRepo := bugs.NewRepository(pool)
	bugService := bugs.NewService(bugRepo, notifier, recorder, logger)
	bugHandler := bugs.NewHandler(bugService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		Auth:                 authMW,
		Guard:                guard,
		PermissionsHandler:   permHandler,
		UsersHandler:         userHandler,
		ProjectsHandler:      projectHandler,
		BugsHandler:          bugHandler,
		NotificationsHandler: notifHandler,
		ActivityHandler:      activityHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
