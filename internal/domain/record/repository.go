package record

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the payment record storage contract.
// Every read is scoped by merchant id: a record owned by another merchant
// is indistinguishable from a missing one.
type Repository interface {
	// Add inserts a new record. Returns ErrDuplicateRecordID if a record
	// with the same id already exists; an existing record is never
	// overwritten.
	Add(ctx context.Context, r *PaymentRecord) error

	// Update replaces the record matching (merchant id, id). Returns
	// ErrRecordNotFound if absent; it never inserts.
	Update(ctx context.Context, r *PaymentRecord) error

	// GetByID retrieves a record scoped by merchant.
	GetByID(ctx context.Context, merchantID string, id uuid.UUID) (*PaymentRecord, error)
}

// AttemptLogger appends bank call outcomes to the durable attempt log.
type AttemptLogger interface {
	Append(ctx context.Context, a *PaymentAttempt) error
}
