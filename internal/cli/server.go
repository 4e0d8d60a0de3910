package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/EgehanKilicarslan/bienesraices/internal/api"
	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	internalgrpc "github.com/EgehanKilicarslan/bienesraices/internal/grpc"
	"github.com/EgehanKilicarslan/bienesraices/internal/handler"
	"github.com/EgehanKilicarslan/bienesraices/internal/mail"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
	"github.com/EgehanKilicarslan/bienesraices/internal/mq"
	"github.com/EgehanKilicarslan/bienesraices/internal/storage"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
	"github.com/EgehanKilicarslan/bienesraices/internal/web"
	"github.com/EgehanKilicarslan/bienesraices/internal/worker"
)

const (
	healthProbeInterval = 15 * time.Second
	shutdownTimeout     = 30 * time.Second
)

func newServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the HTTP server and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap()
			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

// application holds everything the server command wires together
type application struct {
	handler http.Handler
	health  *internalgrpc.HealthServer
	pool    *worker.Pool
	closers []func() error
	logger  *slog.Logger
}

// newApplication builds services, handlers and the router on top of db.
// A nil redisClient falls back to the no-op session store and rate limiter.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	db *gorm.DB,
	redisClient *database.RedisClient,
	logger *slog.Logger,
) (*application, error) {
	app := &application{
		pool:   worker.NewPool(logger),
		logger: logger,
	}

	// 1. Sessions and login throttling
	var sessions database.SessionStore
	var limiter middleware.RateLimiter
	if redisClient != nil {
		sessions = redisClient
		limiter = middleware.NewRateLimiter(
			redisClient.GetClient(),
			cfg.LoginMaxAttempts,
			time.Duration(cfg.LoginWindow)*time.Second,
			logger,
		)
		app.closers = append(app.closers, redisClient.Close)
	} else {
		sessions = database.NewNoOpSessionStore(logger)
		limiter = middleware.NewNoOpRateLimiter(logger)
	}

	// 2. Object storage
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	// 3. Outbound mail
	mailer, err := app.newDispatcher(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	// 4. Repositories and services
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	validator := validation.New()

	authService := service.NewAuthService(userRepo, service.NewTokenService(cfg), sessions, mailer, validator, cfg, logger)
	listingService := service.NewListingService(listingRepo, catalogRepo, store, validator, cfg, logger)
	messageService := service.NewMessageService(messageRepo, listingRepo, validator, logger)

	// 5. Handlers and router
	renderer, err := web.NewRenderer()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := api.SetupRouter(api.Handlers{
		Auth:     handler.NewAuthHandler(authService, limiter, cfg, logger),
		Listings: handler.NewListingHandler(listingService, messageService, storage.NewImageUploader(store, cfg.MaxFileSize), store, logger),
		Public:   handler.NewPublicHandler(listingService, messageService, logger),
		API:      handler.NewAPIHandler(listingService, store, db, logger),
	}, middleware.NewAuthMiddleware(authService, logger), renderer, cfg)

	app.handler = api.Wrap(router, cfg)

	// 6. Health
	app.health = internalgrpc.NewHealthServer(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}, 5*time.Second, logger)

	return app, nil
}

func (a *application) newDispatcher(ctx context.Context, cfg *config.Config) (mail.Dispatcher, error) {
	if cfg.MailTransport == "queue" {
		broker, err := mq.Connect(ctx, cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, broker.Close)
		a.logger.Info("📨 [Mail] Queueing outbound mail", "queue", cfg.MailQueue)
		return mail.NewQueueDispatcher(broker, cfg.MailQueue, a.logger), nil
	}

	a.logger.Info("📧 [Mail] Delivering mail inline", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	sender := mail.NewSMTPSender(cfg.SMTP, cfg.MailFrom)
	return mail.NewPoolDispatcher(a.pool, sender, time.Duration(cfg.MailTimeout)*time.Second, a.logger), nil
}

// Close waits for background work and releases external connections
func (a *application) Close() {
	if a.health != nil {
		a.health.Stop()
	}
	a.pool.Shutdown(shutdownTimeout)
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("⚠️ [Server] Failed to close resource", "error", err)
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("🚀 [Server] Starting BienesRaices...",
		"environment", cfg.AppEnv,
		"storage", cfg.StorageBackend,
		"mail_transport", cfg.MailTransport,
	)

	// 1. Database
	if err := database.ConnectDatabase(cfg, logger); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db := database.GetDatabase()

	// 2. Redis is optional
	redisClient, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		logger.Warn("⚠️ [Server] Redis unavailable, sessions cannot be revoked and logins are not throttled", "error", err)
		redisClient = nil
	}

	// 3. Application
	app, err := newApplication(ctx, cfg, db, redisClient, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	// 4. gRPC health
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.ApiGrpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	go func() {
		logger.Info("🔌 [Server] gRPC health server running...", "port", cfg.ApiGrpcPort)
		if err := app.health.Serve(grpcListener); err != nil {
			logger.Error("❌ [Server] gRPC server failed", "error", err)
		}
	}()
	app.health.Watch(app.pool, healthProbeInterval)

	// 5. HTTP
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌍 [Server] HTTP server running...", "port", cfg.ApiServicePort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("🛑 [Server] Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}

	logger.Info("✅ [Server] HTTP server stopped")
	return nil
}
