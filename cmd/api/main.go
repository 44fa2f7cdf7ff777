package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gitsageai/payments-backend/api/routes"
	"github.com/gitsageai/payments-backend/internal/checkout"
	"github.com/gitsageai/payments-backend/internal/credits"
	"github.com/gitsageai/payments-backend/internal/fulfillment"
	"github.com/gitsageai/payments-backend/internal/orders"
	"github.com/gitsageai/payments-backend/internal/transactions"
	"github.com/gitsageai/payments-backend/internal/users"
	"github.com/gitsageai/payments-backend/internal/verification"
	cashfreewebhook "github.com/gitsageai/payments-backend/internal/webhooks/cashfree"
	"github.com/gitsageai/payments-backend/pkg/cashfree"
	"github.com/gitsageai/payments-backend/pkg/config"
	"github.com/gitsageai/payments-backend/pkg/db"
	"github.com/gitsageai/payments-backend/pkg/logger"
	"github.com/gitsageai/payments-backend/pkg/metrics"
	"github.com/gitsageai/payments-backend/pkg/migrate"
	"github.com/gitsageai/payments-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	cashfreeClient, err := cashfree.NewClient(context.Background(), cfg.Cashfree, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cashfree client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	transactionsRepo := transactions.NewRepository(dbClient.DB())
	spendsRepo := credits.NewRepository(dbClient.DB())

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		TransactionRunner: dbClient,
		OrdersRepo:        ordersRepo,
		TransactionsRepo:  transactionsRepo,
		UsersRepo:         usersRepo,
		Logger:            logg,
		Metrics:           paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookService, err := cashfreewebhook.NewService(cashfreewebhook.ServiceParams{
		Fulfillment: fulfillmentService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Provider:         cashfreeClient,
		OrdersRepo:       ordersRepo,
		TransactionsRepo: transactionsRepo,
		UsersRepo:        usersRepo,
		ReturnURL:        cfg.Cashfree.ReturnURL,
		NotifyURL:        cfg.Cashfree.NotifyURL,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	verificationService, err := verification.NewService(verification.ServiceParams{
		Provider:         cashfreeClient,
		Fulfillment:      fulfillmentService,
		OrdersRepo:       ordersRepo,
		TransactionsRepo: transactionsRepo,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	creditsService, err := credits.NewService(credits.ServiceParams{
		TransactionRunner: dbClient,
		UsersRepo:         usersRepo,
		TransactionsRepo:  transactionsRepo,
		SpendsRepo:        spendsRepo,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     id,
		"cashfree_env": cashfreeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:              cfg,
			Logger:              logg,
			DBPinger:            dbClient,
			RedisClient:         redisClient,
			CashfreeClient:      cashfreeClient,
			PaymentMetrics:      paymentMetrics,
			MetricsRegistry:     registry,
			CheckoutService:     checkoutService,
			VerificationService: verificationService,
			CreditsService:      creditsService,
			WebhookService:      webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
