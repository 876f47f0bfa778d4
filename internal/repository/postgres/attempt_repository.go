package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository persists the outcome of every bank call, including the
// indeterminate ones that never produce a payment record. It is the audit
// trail operators use to reconcile unknown outcomes with the bank.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Append writes an attempt row. Attempts are insert-only.
func (r *AttemptRepository) Append(ctx context.Context, attempt *record.PaymentAttempt) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payment_attempts
		 (id, payment_id, merchant_id, outcome, detail, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		attempt.ID, attempt.PaymentID, attempt.MerchantID,
		string(attempt.Outcome), attempt.Detail, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment attempt: %w", err)
	}
	return nil
}
