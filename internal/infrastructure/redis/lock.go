package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for safe lock release (only owner can release)
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// SettlementLock guards a single payment against concurrent settlement.
// Consumer-group redelivery can hand the same event to two workers; the
// lock makes sure only one of them runs the bank call.
type SettlementLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewSettlementLock creates a lock for the given payment id.
func NewSettlementLock(client *redis.Client, paymentID string, ttl time.Duration) *SettlementLock {
	return &SettlementLock{
		client: client,
		key:    fmt.Sprintf("settlement-lock:%s", paymentID),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lock. SET NX makes the attempt atomic.
func (l *SettlementLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire settlement lock: %w", err)
	}
	l.acquired = ok
	return ok, nil
}

// Release frees the lock if this instance still owns it.
func (l *SettlementLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release settlement lock: %w", err)
	}
	if val, ok := result.(int64); !ok || val == 0 {
		return fmt.Errorf("settlement lock not held or already released")
	}

	l.acquired = false
	return nil
}
