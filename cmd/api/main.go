package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TronoSfera/Law-sub001/internal/alerts"
	httptransport "github.com/TronoSfera/Law-sub001/internal/api/http"
	"github.com/TronoSfera/Law-sub001/internal/api/http/handlers"
	"github.com/TronoSfera/Law-sub001/internal/auth"
	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/config"
	"github.com/TronoSfera/Law-sub001/internal/events"
	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/persistence"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	"github.com/TronoSfera/Law-sub001/internal/repository/memory"
	"github.com/TronoSfera/Law-sub001/internal/secure"
	"github.com/TronoSfera/Law-sub001/internal/service"
	"github.com/TronoSfera/Law-sub001/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		store = memory.New()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	clk := clock.Real{}
	metrics := observability.NewMetrics()

	dispatcher := events.NewDispatcher(logger)
	defer dispatcher.Close() //nolint:errcheck

	box, err := secure.NewBox(cfg.Billing.EncryptionKey)
	if err != nil {
		logger.Fatal("failed to init payer details encryption", zap.Error(err))
	}

	slaCfg := service.DefaultSLAConfig()
	slaCfg.DefaultHours = cfg.SLA.DefaultHours
	slaCfg.Policy = cfg.SLA.Policy
	slaCfg, err = service.LoadSLARules(cfg.SLA.RulesFile, slaCfg)
	if err != nil {
		logger.Fatal("failed to load sla rules", zap.Error(err))
	}

	sender := alerts.Multi{
		alerts.NewTelegram(cfg.Notification.TelegramAPIURL, cfg.Notification.TelegramBotToken, cfg.Notification.TelegramChatID, nil),
		alerts.NewEmail(
			alerts.NewSMTPDialer(cfg.Notification.SMTPHost, cfg.Notification.SMTPPort, cfg.Notification.SMTPUser, cfg.Notification.SMTPPassword),
			cfg.Notification.EmailFrom,
			cfg.Notification.EmailTo,
		),
	}

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Sender:     sender,
		Clock:      clk,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err := worker.StartNotificationWorker(notificationService); err != nil {
		logger.Fatal("failed to start notification worker", zap.Error(err))
	}

	billing := service.NewBillingEngine(box, clk, service.BillingConfig{
		Currency:     cfg.Billing.Currency,
		NumberPrefix: cfg.Billing.NumberPrefix,
	}, logger)
	statusService := service.NewStatusService(service.StatusDependencies{
		Store:      store,
		Billing:    billing,
		Notifier:   notificationService,
		Dispatcher: dispatcher,
		Clock:      clk,
		Metrics:    metrics,
		Logger:     logger,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		Store: store, Notifier: notificationService, Clock: clk, Logger: logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		Store: store, Notifier: notificationService, Clock: clk, Logger: logger,
	})
	invoiceService := service.NewInvoiceService(service.InvoiceDependencies{
		Store: store, Billing: billing, Notifier: notificationService, Clock: clk, Metrics: metrics, Logger: logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		Store: store, Notifier: notificationService, Clock: clk, Config: slaCfg, Logger: logger,
	})
	dictionaryService := service.NewDictionaryService(store, clk, time.Minute, logger)
	if _, err := dictionaryService.SeedDefaults(ctx); err != nil {
		logger.Fatal("failed to seed dictionary", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.ClientTokenTTLMinutes, clk)
	authService := service.NewAuthService(service.AuthDependencies{
		Store: store, Tokens: tokens, BcryptCost: cfg.Auth.BcryptCost, Clock: clk, Logger: logger,
	})
	if _, err := authService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Repos().AdminUsers)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"store": store,
			"redis": redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Public:         handlers.NewPublicHandler(requestService, messageService, notificationService, authService),
		AdminRequests:  handlers.NewAdminRequestsHandler(requestService, statusService, messageService, notificationService, billing),
		Invoices:       handlers.NewInvoicesHandler(invoiceService),
		SLA:            handlers.NewSLAHandler(slaService),
		Dictionary:     handlers.NewDictionaryHandler(dictionaryService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: authMiddleware,
	})

	slaWorker := worker.NewSLAWorker(worker.SLAWorkerConfig{
		Interval: cfg.SLA.CheckInterval(),
		LockKey:  cfg.SLA.LockKey,
	}, slaService, redis, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return slaWorker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
