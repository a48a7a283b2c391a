package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/discount"
	"storefront/internal/migrate"
	"storefront/internal/models"
	"storefront/internal/printful"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront", zap.String("base_url", cfg.Shop.BaseURL))

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := migrate.Apply(db.DB()); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Info("Migrations applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CartTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

	eventPublisher := broker.NewEventPublisher(producer)

	printfulClient := printful.NewClient(cfg.Printful.APIURL, cfg.Printful.APIKey, cfg.Printful.Timeout)
	codes := discount.NewCodes(cfg.Shop.DiscountCodes)

	catalogService := service.NewCatalogService(printfulClient, cfg.Shop.CurrencySymbol)
	checkoutService := service.NewCheckoutService(printfulClient, eventPublisher, codes, cfg.Shop.BaseURL, legacyRecipient(cfg.Shop.LegacyRecipient))
	paymentService := service.NewPaymentService(
		service.NewStripeGateway(cfg.Stripe.SecretKey),
		checkoutService,
		eventPublisher,
		db,
		redisClient,
		service.PaymentConfig{
			WebhookSecret:   cfg.Stripe.WebhookSecret,
			PublishableKey:  cfg.Stripe.PublishableKey,
			DefaultCurrency: cfg.Stripe.DefaultCurrency,
		},
	)
	ledgerService := service.NewLedgerService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	ledgerConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	ledgerWorker := worker.NewLedgerWorker(ledgerConsumer, ledgerService)
	go func() {
		if err := ledgerWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Ledger worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Dependencies{
		Catalog:  catalogService,
		Checkout: checkoutService,
		Payments: paymentService,
		Orders:   ledgerService,
		Carts: func(sessionID string) cart.Persistence {
			return redisClient.CartPersistence(sessionID)
		},
		Codes:          codes,
		CurrencySymbol: cfg.Shop.CurrencySymbol,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadyChecks: map[string]func(context.Context) error{
			"database": db.Ping,
			"redis":    redisClient.Ping,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := ledgerWorker.Stop(); err != nil {
		logger.Warn("Error stopping ledger worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

func legacyRecipient(r config.RecipientConfig) models.Address {
	return models.Address{
		Name:        r.Name,
		Address1:    r.Address1,
		City:        r.City,
		StateCode:   r.StateCode,
		CountryCode: r.CountryCode,
		Zip:         r.Zip,
	}
}
