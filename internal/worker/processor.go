// Package worker drives settlement events from the created stream to a
// terminal payment status. It consumes through a redis consumer group,
// serialises per-payment work behind a settlement lock, and routes events
// that cannot settle to the dead letter stream.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Consumer is the stream surface the processor reads from. Claim recovers
// pending entries whose original consumer never acked them.
type Consumer interface {
	Read(ctx context.Context) ([]redis.XStream, error)
	Ack(ctx context.Context, messageID string) error
	Claim(ctx context.Context, minIdleTime time.Duration) ([]redis.XMessage, error)
}

// DeadLetterer records events that will never settle on their own.
type DeadLetterer interface {
	PublishToDLQ(ctx context.Context, paymentID, reason string) error
}

// Lock guards one payment against concurrent settlement.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Settler drives one created event to a terminal status.
type Settler interface {
	Execute(ctx context.Context, evt paymentApp.PaymentCreatedEvent) error
}

// Config tunes the processing loops.
type Config struct {
	// ClaimMinIdle is how long a pending entry must sit unacked before the
	// reclaimer takes it over.
	ClaimMinIdle time.Duration
	// ClaimInterval is how often the reclaimer scans the pending list.
	ClaimInterval time.Duration
	// ReadErrorBackoff is the pause after a failed stream read.
	ReadErrorBackoff time.Duration
}

// Processor consumes settlement events and applies them.
type Processor struct {
	consumer Consumer
	dlq      DeadLetterer
	settler  Settler
	newLock  func(paymentID string) Lock
	cfg      Config
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewProcessor(
	consumer Consumer,
	dlq DeadLetterer,
	settler Settler,
	newLock func(paymentID string) Lock,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Processor {
	if cfg.ReadErrorBackoff <= 0 {
		cfg.ReadErrorBackoff = time.Second
	}
	return &Processor{
		consumer: consumer,
		dlq:      dlq,
		settler:  settler,
		newLock:  newLock,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run reads new messages until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := p.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(p.cfg.ReadErrorBackoff)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				p.Process(ctx, msg.ID, msg.Values)
			}
		}
	}
}

// RunReclaimer periodically takes over pending entries older than
// ClaimMinIdle. Without it, a message read by a worker that crashed before
// acking (or skipped under lock contention) would sit in the pending list
// forever and its record would stay Pending.
func (p *Processor) RunReclaimer(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		messages, err := p.consumer.Claim(ctx, p.cfg.ClaimMinIdle)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error().Err(err).Msg("Failed to claim pending messages")
			continue
		}

		for _, msg := range messages {
			p.logger.Info().Str("message_id", msg.ID).Msg("Reclaimed stale settlement event")
			p.Process(ctx, msg.ID, msg.Values)
		}
	}
}

// Process settles one stream message and acks it. Lock contention is the
// only path that leaves the message pending; the reclaimer picks it up.
func (p *Processor) Process(ctx context.Context, messageID string, values map[string]any) {
	paymentID, _ := values["payment_id"].(string)
	payload, _ := values["payload"].(string)

	var evt paymentApp.PaymentCreatedEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		// A payload that cannot be decoded will never settle; dead letter
		// it instead of redelivering forever.
		p.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Malformed event payload")
		p.deadLetter(ctx, paymentID, "malformed event payload")
		p.consumer.Ack(ctx, messageID)
		p.metrics.WorkerMessagesProcessed.WithLabelValues("malformed").Inc()
		return
	}

	lock := p.newLock(evt.PaymentID)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		p.logger.Warn().Str("payment_id", evt.PaymentID).Msg("Could not acquire settlement lock, skipping")
		return
	}
	defer lock.Release(ctx)

	p.logger.Info().Str("payment_id", evt.PaymentID).Msg("Settling payment")

	start := time.Now()
	err = p.settler.Execute(ctx, evt)
	p.metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		p.metrics.WorkerMessagesProcessed.WithLabelValues("success").Inc()
	case errors.Is(err, domainErrors.ErrBankUnavailable):
		// The record stays Pending; reconciliation works off the DLQ.
		p.deadLetter(ctx, evt.PaymentID, "bank outcome indeterminate")
		p.metrics.WorkerMessagesProcessed.WithLabelValues("dead_lettered").Inc()
	case errors.Is(err, domainErrors.ErrRecordNotFound):
		p.logger.Error().Str("payment_id", evt.PaymentID).Msg("No record for settlement event")
		p.metrics.WorkerMessagesProcessed.WithLabelValues("orphaned").Inc()
	default:
		p.logger.Error().Err(err).Str("payment_id", evt.PaymentID).Msg("Failed to settle payment")
		p.deadLetter(ctx, evt.PaymentID, err.Error())
		p.metrics.WorkerMessagesProcessed.WithLabelValues("error").Inc()
	}

	p.consumer.Ack(ctx, messageID)
}

func (p *Processor) deadLetter(ctx context.Context, paymentID, reason string) {
	if err := p.dlq.PublishToDLQ(ctx, paymentID, reason); err != nil {
		p.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to publish to DLQ")
	}
}
