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
	"github.com/cassiomorais/gateway/internal/crypto"
	infraRedis "github.com/cassiomorais/gateway/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway/internal/repository/postgres"
	"github.com/cassiomorais/gateway/internal/worker"
	"github.com/cassiomorais/gateway/pkg/retry"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "gateway-worker", "gateway_worker")
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

	// --- Bank client ---
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

	// --- Use cases ---
	settleUC := paymentApp.NewSettlePaymentUseCase(
		paymentRepo, attemptRepo, bankClient, codec, keys,
		txManager, app.Metrics, app.Logger,
	)

	// --- Settlement stream consumer ---
	workerCfg := cfg.Worker
	producer := infraRedis.NewStreamProducer(app.Redis)
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.CreatedStream,
		workerCfg.ConsumerGroup,
		cfg.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	processor := worker.NewProcessor(
		consumer,
		producer,
		settleUC,
		func(paymentID string) worker.Lock {
			return infraRedis.NewSettlementLock(app.Redis, paymentID, workerCfg.LockTTL)
		},
		worker.Config{
			ClaimMinIdle:  workerCfg.ClaimMinIdle,
			ClaimInterval: workerCfg.ClaimInterval,
		},
		app.Metrics,
		app.Logger,
	)

	app.Logger.Info().
		Str("stream", infraRedis.CreatedStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Settlement processor (reads new messages).
	g.Go(func() error {
		return processor.Run(gCtx)
	})

	// 2. Pending-entry reclaimer (recovers messages from crashed workers).
	g.Go(func() error {
		return processor.RunReclaimer(gCtx)
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
