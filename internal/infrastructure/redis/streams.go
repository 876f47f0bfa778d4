package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CreatedStream carries payment.created events awaiting settlement.
	CreatedStream = "payments:created"
	// DLQStream collects settlement events whose bank outcome stayed
	// indeterminate after processing.
	DLQStream = "payments:dlq"
)

type StreamProducer struct {
	client *redis.Client
}

func NewStreamProducer(client *redis.Client) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishPaymentCreated enqueues a payment for asynchronous settlement.
// The payload carries only encrypted transfer fields; the worker decrypts
// from the stored record, so no plaintext ever reaches the stream.
func (p *StreamProducer) PublishPaymentCreated(ctx context.Context, paymentID string, payload string) error {
	args := &redis.XAddArgs{
		Stream: CreatedStream,
		Values: map[string]any{
			"payment_id": paymentID,
			"payload":    payload,
			"timestamp":  time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish payment created event: %w", err)
	}
	return nil
}

// PublishToDLQ records a settlement event that could not reach a terminal
// outcome, for manual reconciliation.
func (p *StreamProducer) PublishToDLQ(ctx context.Context, paymentID string, reason string) error {
	args := &redis.XAddArgs{
		Stream: DLQStream,
		Values: map[string]any{
			"payment_id": paymentID,
			"reason":     reason,
			"timestamp":  time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}
	return nil
}

type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.stream, c.group, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// Claim takes over pending entries idle for at least minIdleTime: messages
// read by a consumer that crashed before acking, or skipped under lock
// contention. XAUTOCLAIM scans the whole pending list, so no prior
// knowledge of message ids is needed.
func (c *StreamConsumer) Claim(ctx context.Context, minIdleTime time.Duration) ([]redis.XMessage, error) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    c.batchSize,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to claim pending messages: %w", err)
	}

	return messages, nil
}
