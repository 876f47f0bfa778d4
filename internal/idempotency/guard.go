// Package idempotency suppresses duplicate processing of retried client
// requests keyed by a client-supplied token.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
)

// Cache is the generic TTL key-value collaborator the guard marks tokens in.
// SetIfAbsent must be atomic: two concurrent calls for the same absent key
// must not both succeed.
type Cache interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Contains(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "idempotency:"

// DefaultTTL is how long a token stays marked.
const DefaultTTL = 24 * time.Hour

// Guard marks idempotency tokens before business logic runs and rolls the
// mark back when handling fails server-side. An empty token disables
// guarding: every operation becomes a no-op.
type Guard struct {
	cache Cache
	ttl   time.Duration
}

// NewGuard creates a guard over the given cache. ttl <= 0 falls back to
// DefaultTTL.
func NewGuard(cache Cache, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{cache: cache, ttl: ttl}
}

// Invalidate atomically marks the token as in flight. It returns
// ErrDuplicateIdempotencyKey when the token is already marked, so checking
// and marking are a single step with no race window between them.
func (g *Guard) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	created, err := g.cache.SetIfAbsent(ctx, keyPrefix+token, time.Now().UTC().Format(time.RFC3339Nano), g.ttl)
	if err != nil {
		return fmt.Errorf("mark idempotency token: %w", err)
	}
	if !created {
		return errors.ErrDuplicateIdempotencyKey
	}
	return nil
}

// Rollback removes the mark so the client may safely retry. Called only when
// downstream handling failed with a server-side error; business rejections
// keep their mark because they are valid, repeat-safe terminal outcomes.
func (g *Guard) Rollback(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := g.cache.Delete(ctx, keyPrefix+token); err != nil {
		return fmt.Errorf("rollback idempotency token: %w", err)
	}
	return nil
}

// IsDuplicate reports whether the token is already marked.
func (g *Guard) IsDuplicate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return g.cache.Contains(ctx, keyPrefix+token)
}
