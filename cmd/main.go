package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunucuics/ICS-APP-BACK/internal/address"
	"github.com/sunucuics/ICS-APP-BACK/internal/aras"
	"github.com/sunucuics/ICS-APP-BACK/internal/cache"
	"github.com/sunucuics/ICS-APP-BACK/internal/cartresolver"
	"github.com/sunucuics/ICS-APP-BACK/internal/catalog"
	"github.com/sunucuics/ICS-APP-BACK/internal/checkout"
	"github.com/sunucuics/ICS-APP-BACK/internal/config"
	"github.com/sunucuics/ICS-APP-BACK/internal/events"
	"github.com/sunucuics/ICS-APP-BACK/internal/fulfillment"
	h "github.com/sunucuics/ICS-APP-BACK/internal/http"
	"github.com/sunucuics/ICS-APP-BACK/internal/labelstore"
	"github.com/sunucuics/ICS-APP-BACK/internal/payment"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
	"github.com/sunucuics/ICS-APP-BACK/internal/syncer"
	"github.com/sunucuics/ICS-APP-BACK/internal/telemetry"
)

const serviceName = "ics-app-back"

func main() {
	cfg := config.Load()
	logger := telemetry.InitLogger()

	ctx := context.Background()

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Client().Disconnect(ctx)

	orderRepo := repository.NewOrderRepository(db)
	if err := orderRepo.CreateIndexes(ctx); err != nil {
		logger.Error("failed to create order indexes", "error", err)
		os.Exit(1)
	}
	cartRepo := repository.NewCartRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	userRepo := repository.NewUserRepository(db)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	carts := cartresolver.New(cartRepo, cache.NewRedisCache(redisClient), logger)
	enricher := catalog.NewEnricher(catalogRepo, logger)
	addresses := address.NewResolver(addressRepo, userRepo, logger)

	carrier := aras.NewClient(aras.Config{
		BaseURL:      cfg.Aras.BaseURL,
		Username:     cfg.Aras.Username,
		Password:     cfg.Aras.Password,
		CustomerCode: cfg.Aras.CustomerCode,
		Timeout:      cfg.Aras.Timeout,
	}, logger)

	// Label storage is optional. The extra variable keeps the interface nil
	// when no store is configured, a plain assignment would box a nil pointer.
	var labels fulfillment.LabelStore
	if cfg.Minio.Endpoint != "" {
		store, err := labelstore.New(labelstore.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			Public:    cfg.LabelPublic,
			Expires:   cfg.LabelURLExpires,
		}, logger)
		if err != nil {
			logger.Error("failed to set up label storage", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Error("failed to ensure label bucket", "error", err)
			os.Exit(1)
		}
		labels = store
	}

	publisher := events.NewPublisher(cfg.KafkaOrderTopic, logger, cfg.KafkaBrokers...)
	charger := payment.New(cfg.StripeAPIKey, logger)

	fulfillmentSvc := fulfillment.NewService(carrier, labels, orderRepo, fulfillment.Options{
		AutoLabel:        cfg.AutoLabel,
		AutoPickup:       cfg.AutoPickup,
		PickupDaysOffset: cfg.PickupDaysOffset,
		PickupTimeWindow: cfg.PickupTimeWindow,
	}, logger)

	checkoutSvc := checkout.NewService(
		orderRepo, carts, enricher, addresses, carrier, charger, publisher, fulfillmentSvc, logger,
	)

	statusSyncer := syncer.New(orderRepo, carrier, publisher, cfg.SyncInterval, logger)
	statusSyncer.Start(ctx)

	router := h.NewRouter(h.RouterDeps{
		Orders:  h.NewOrdersHandler(checkoutSvc, orderRepo, statusSyncer, publisher, cfg.Aras.TrackingLinkTemplate),
		Admin:   h.NewAdminHandler(orderRepo, statusSyncer, fulfillmentSvc, publisher, cfg.Aras.TrackingLinkTemplate),
		Webhook: h.NewWebhookHandler(orderRepo, statusSyncer, cfg.WebhookSecret),
		Auth:    h.NewAuthMiddleware(cfg.JWTSecret),
		Health: func(ctx context.Context) error {
			return repository.Ping(ctx, db)
		},
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// WriteTimeout sits above the request timeout so slow carrier round
		// trips get a proper error response instead of a dropped connection.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("orders API starting", "port", cfg.HTTPPort, "aras_env", cfg.Aras.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	statusSyncer.Stop()
	publisher.Close()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}

	logger.Info("server exited")
}
