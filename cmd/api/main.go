package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/case-routing-service/internal/api/http"
	"github.com/spec-kit/case-routing-service/internal/api/http/handlers"
	"github.com/spec-kit/case-routing-service/internal/auth"
	"github.com/spec-kit/case-routing-service/internal/config"
	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/events"
	"github.com/spec-kit/case-routing-service/internal/observability"
	"github.com/spec-kit/case-routing-service/internal/persistence"
	"github.com/spec-kit/case-routing-service/internal/repository"
	"github.com/spec-kit/case-routing-service/internal/routing"
	"github.com/spec-kit/case-routing-service/internal/service"
	"github.com/spec-kit/case-routing-service/internal/worker"
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
	caseRepo := repository.NewCaseRepository(pool)
	funnelRepo := repository.NewFunnelRepository(pool)
	bidRepo := repository.NewBidRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	boardCache := repository.NewCaseBoardCache(redis, cfg.Routing.BoardCacheTTL(), logger)
	boardCache.RegisterInvalidation(dispatcher)

	classifier := routing.NewClassifier(cfg.Routing.HighValueBudgetThresholdCents, cfg.Routing.ExclusivityWindow())
	tierPolicy := routing.NewTierPolicy(
		domain.AccessTier(cfg.Routing.MinParticipationTier),
		domain.AccessTier(cfg.Routing.EliteTier),
	)

	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:   caseRepo,
		BoardCache: boardCache,
		Classifier: classifier,
		TierPolicy: tierPolicy,
		Dispatcher: dispatcher,
	})
	funnelService := service.NewFunnelService(service.FunnelDependencies{
		CaseRepo:                    caseRepo,
		FunnelRepo:                  funnelRepo,
		BidRepo:                     bidRepo,
		Dispatcher:                  dispatcher,
		MinInternationalAmountCents: cfg.Routing.MinInternationalAmountCents,
		AuctionDuration:             cfg.Routing.AuctionDuration(),
	})
	auctionService := service.NewAuctionService(service.AuctionDependencies{
		CaseRepo:   caseRepo,
		FunnelRepo: funnelRepo,
		BidRepo:    bidRepo,
		Locks:      funnelService.Locks(),
		Dispatcher: dispatcher,
		AdminTier:  domain.AccessTier(cfg.Routing.AdminTier),
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	casesHandler := handlers.NewCasesHandler(caseService)
	funnelHandler := handlers.NewFunnelHandler(funnelService)
	auctionHandler := handlers.NewAuctionHandler(auctionService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:               healthHandler,
		Cases:                casesHandler,
		Funnel:               funnelHandler,
		Auction:              auctionHandler,
		AuthMiddleware:       authMiddleware,
		MinParticipationTier: domain.AccessTier(cfg.Routing.MinParticipationTier),
		AdminTier:            domain.AccessTier(cfg.Routing.AdminTier),
	})

	sweeper := worker.NewAuctionSweeper(auctionService, cfg.Routing.SweepInterval(), logger)
	go sweeper.Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
