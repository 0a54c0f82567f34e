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

	"github.com/gunaso/grievance-service/internal/ai"
	httptransport "github.com/gunaso/grievance-service/internal/api/http"
	"github.com/gunaso/grievance-service/internal/api/http/handlers"
	"github.com/gunaso/grievance-service/internal/auth"
	"github.com/gunaso/grievance-service/internal/config"
	"github.com/gunaso/grievance-service/internal/events"
	"github.com/gunaso/grievance-service/internal/notify"
	"github.com/gunaso/grievance-service/internal/observability"
	"github.com/gunaso/grievance-service/internal/persistence"
	"github.com/gunaso/grievance-service/internal/repository"
	"github.com/gunaso/grievance-service/internal/service"
	"github.com/gunaso/grievance-service/internal/worker"
)

const (
	migrationsDir       = "migrations"
	memoryQueueSize     = 1024
	notificationWorkers = 4
	notificationBacklog = 512
	notificationTimeout = 30 * time.Second
	shutdownGrace       = 15 * time.Second
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
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, os.DirFS(migrationsDir), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, redisReachable := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var queue worker.Queue
	if redisReachable {
		queue = worker.NewRedisQueue(redis.Client, cfg.Enrichment.QueueKey)
	} else {
		logger.Warn("enrichment jobs will use the in-memory queue")
		queue = worker.NewMemoryQueue(memoryQueueSize)
	}

	classifier, err := ai.NewClassifier(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("failed to init ai classifier", zap.Error(err))
	}
	if !classifier.Configured() {
		logger.Warn("GEMINI_API_KEY not set; complaint enrichment disabled")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	userRepo := repository.NewUserRepository(pool)
	ministryRepo := repository.NewMinistryRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	updateRepo := repository.NewComplaintUpdateRepository(pool)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:       userRepo,
		MinistryRepo:   ministryRepo,
		DepartmentRepo: departmentRepo,
	})
	referenceService := service.NewReferenceService(ministryRepo, departmentRepo)
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  complaintRepo,
		UpdateRepo:     updateRepo,
		MinistryRepo:   ministryRepo,
		DepartmentRepo: departmentRepo,
		Access:         service.NewAccessResolver(),
		Dispatcher:     dispatcher,
	})
	enrichmentService := service.NewEnrichmentService(complaintRepo, classifier)

	runner := worker.NewNotificationRunner(notificationWorkers, notificationBacklog, notificationTimeout, logger.Named("notifications"))
	runner.Start()

	notifier := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		ComplaintRepo: complaintRepo,
		UpdateRepo:    updateRepo,
		UserRepo:      userRepo,
		Email:         notify.NewEmailSender(cfg.Mail, logger),
		SMS:           notify.NewSMSSender(cfg.SMS, logger),
		Runner:        runner,
		Metrics:       metrics,
		Logger:        logger.Named("notifier"),
	})
	notifier.RegisterHandlers()

	enrichmentPool := worker.NewEnrichmentPool(worker.EnrichmentPoolConfig{
		Queue:    queue,
		Enricher: enrichmentService,
		Policy:   worker.PolicyFromConfig(cfg.Enrichment),
		Workers:  cfg.Enrichment.Workers,
		Metrics:  metrics,
		Logger:   logger.Named("enrichment"),
	})
	enrichmentPool.RegisterHandlers(dispatcher)
	enrichmentPool.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, redisReachable, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Reference:      handlers.NewReferenceHandler(referenceService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownGrace); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	enrichmentPool.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer stopCancel()
	runner.Stop(stopCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
