package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	"github.com/cassiomorais/gateway/internal/bank"
	"github.com/cassiomorais/gateway/internal/bootstrap"
	"github.com/cassiomorais/gateway/internal/controller"
	"github.com/cassiomorais/gateway/internal/crypto"
	"github.com/cassiomorais/gateway/internal/idempotency"
	"github.com/cassiomorais/gateway/internal/infrastructure/config"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/cassiomorais/gateway/pkg/retry"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "gateway-api", "gateway")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	attemptRepo := postgres.NewAttemptRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Encryption ---
	keys, err := crypto.NewConfigKeyResolver(cfg.Encryption.MerchantKeys)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Invalid merchant key configuration")
	}
	codec := crypto.NewAESGCMCodec()

	// --- Infrastructure clients ---
	cache := infraRedis.NewCache(app.Redis)
	guard := idempotency.NewGuard(cache, cfg.Idempotency.KeyTTL)
	producer := infraRedis.NewStreamProducer(app.Redis)

	bankClient := bank.NewClient(
		cfg.Bank.BaseURL,
		bank.WithHTTPClient(&http.Client{Timeout: cfg.Bank.RequestTimeout}),
		bank.WithRetryConfig(retry.Config{
			MaxRetries: cfg.Bank.MaxRetries,
			BaseDelay:  cfg.Bank.RetryBaseDelay,
		}),
		bank.WithLogger(app.Logger),
		bank.WithMetrics(app.Metrics),
	)

	// --- Application services ---
	async := cfg.Payment.Mode == config.ModeAsync
	createPaymentUC := paymentApp.NewCreatePaymentUseCase(
		paymentRepo, attemptRepo, bankClient, codec, keys,
		producer, txManager, async, app.Metrics, app.Logger,
	)
	getPaymentUC := paymentApp.NewGetPaymentUseCase(paymentRepo, codec, keys)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:              app.Pool,
		RedisClient:       app.Redis,
		CreatePayment:     createPaymentUC,
		GetPayment:        getPaymentUC,
		Guard:             guard,
		Metrics:           app.Metrics,
		JWTSecret:         cfg.Auth.JWTSecret,
		CORSConfig:        cfg.Server.CORS,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		app.Logger.Info().
			Str("addr", addr).
			Str("mode", string(cfg.Payment.Mode)).
			Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
