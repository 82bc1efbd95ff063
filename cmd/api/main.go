package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/roadside-assist/internal/api/http"
	"github.com/spec-kit/roadside-assist/internal/api/http/handlers"
	"github.com/spec-kit/roadside-assist/internal/auth"
	"github.com/spec-kit/roadside-assist/internal/config"
	"github.com/spec-kit/roadside-assist/internal/engine"
	"github.com/spec-kit/roadside-assist/internal/events"
	"github.com/spec-kit/roadside-assist/internal/extraction"
	"github.com/spec-kit/roadside-assist/internal/observability"
	"github.com/spec-kit/roadside-assist/internal/persistence"
	"github.com/spec-kit/roadside-assist/internal/repository"
	"github.com/spec-kit/roadside-assist/internal/service"
	"github.com/spec-kit/roadside-assist/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	customerRepo := repository.NewCustomerRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	sessionRepo := repository.NewCachedSessionRepository(
		repository.NewSessionRepository(pool),
		redis.Client,
		time.Duration(cfg.Engine.SessionCacheTTLSec)*time.Second,
		logger,
	)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		SessionRepo: sessionRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		SessionRepo:   sessionRepo,
		MessageRepo:   messageRepo,
		TicketService: ticketService,
		Extractor:     extraction.NewClient(cfg.Extraction, logger),
		Decider:       engine.NewDecider(cfg.Engine.ConfidenceThreshold, cfg.Engine.UnclearLimit),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		HistoryWindow: cfg.Engine.HistoryWindow,
		PhoneRegion:   cfg.Auth.PhoneRegion,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		CustomerRepo: customerRepo,
		AgentRepo:    agentRepo,
		Tokens:       tokens,
		Logger:       logger,
		PhoneRegion:  cfg.Auth.PhoneRegion,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(tokens, customerRepo, agentRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Chat:           handlers.NewChatHandler(conversationService),
		Agent:          handlers.NewAgentHandler(ticketService, conversationService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
