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
	"golang.org/x/sync/errgroup"

	"github.com/lit-program/lit-portal/internal/accounts"
	"github.com/lit-program/lit-portal/internal/alumni"
	"github.com/lit-program/lit-portal/internal/applications"
	"github.com/lit-program/lit-portal/internal/app"
	"github.com/lit-program/lit-portal/internal/auth"
	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/feed"
	"github.com/lit-program/lit-portal/internal/mentorship"
	"github.com/lit-program/lit-portal/internal/observability"
	"github.com/lit-program/lit-portal/internal/platform/cache"
	"github.com/lit-program/lit-portal/internal/platform/db"
	"github.com/lit-program/lit-portal/internal/platform/objstore"
	"github.com/lit-program/lit-portal/internal/resources"
	"github.com/lit-program/lit-portal/internal/shared"
	"github.com/lit-program/lit-portal/internal/view"
	"github.com/lit-program/lit-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	store, err := objstore.New(ctx, objstore.Config{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		Secure:        cfg.MinioSecure,
		PublicBaseURL: cfg.MinioPublicURL,
	})
	if err != nil {
		logger.Error("connect object store", slog.Any("error", err))
		os.Exit(1)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "lit_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()
	auditor := shared.NewAuditLogger(pool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	accountsRepo := accounts.NewRepository(pool)
	authzMW := authz.Middleware{Source: accountsRepo, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool), logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, templates, csrfManager)

	accountsService := accounts.NewService(logger, accountsRepo, jobsClient, auditor)
	accountsHandler := accounts.NewHandler(logger, accountsService, templates, csrfManager, authzMW)

	applicationsService := applications.NewService(applications.NewRepository(pool), jobsClient, auditor, logger)
	applicationsHandler := applications.NewHandler(logger, applicationsService, templates, csrfManager, authzMW)

	broadcaster := feed.NewBroadcaster(redisClient, logger)
	feedService := feed.NewService(feed.NewRepository(pool), accountsRepo, broadcaster, logger)
	feedHandler := feed.NewHandler(logger, feedService, broadcaster, store, objstore.BucketAttachments, templates, csrfManager, authzMW)

	resourcesService := resources.NewService(resources.NewRepository(pool), accountsRepo, logger)
	resourcesHandler := resources.NewHandler(logger, resourcesService, store, objstore.BucketResources, templates, csrfManager, authzMW)

	mentorshipService := mentorship.NewService(mentorship.NewRepository(pool), logger)
	mentorshipHandler := mentorship.NewHandler(logger, mentorshipService, templates, csrfManager, authzMW)

	alumniService := alumni.NewService(alumni.NewRepository(pool), logger)
	alumniHandler := alumni.NewHandler(logger, alumniService, templates, csrfManager, authzMW)

	jobsHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Pool:           pool,
		Redis:          redisClient,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		Authz:          authzMW,

		AuthHandler:         authHandler,
		AccountsHandler:     accountsHandler,
		ApplicationsHandler: applicationsHandler,
		FeedHandler:         feedHandler,
		ResourcesHandler:    resourcesHandler,
		MentorshipHandler:   mentorshipHandler,
		AlumniHandler:       alumniHandler,
		JobsHandler:         jobsHandler,

		AlumniService: alumniService,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}
