package payment

import (
	"context"

	"github.com/cassiomorais/gateway/internal/bank"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BankClient defines the acquiring-bank port. The closed Outcome set forces
// callers to classify every result, including transport failures.
type BankClient interface {
	TransferFunds(ctx context.Context, req bank.TransferRequest) bank.Outcome
}

// EventPublisher defines the interface for publishing payment events to the
// stream consumed by the settlement worker.
type EventPublisher interface {
	PublishPaymentCreated(ctx context.Context, paymentID, payload string) error
}
