package record

import (
	"strings"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the payment record status in the state machine
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSucceeded Status = "Succeeded"
	StatusRejected  Status = "Rejected"
	StatusFailed    Status = "Failed"
)

// EncryptedSource holds the encrypted card fields of a payment.
// Plaintext card data never reaches the store.
type EncryptedSource struct {
	CardNumberEncrypted string
	CardExpiryEncrypted string
	CVVEncrypted        string
}

// EncryptedRecipient holds the encrypted settlement destination fields.
type EncryptedRecipient struct {
	AccountNumberEncrypted string
	SortCodeEncrypted      string
}

// PaymentRecord is the durable unit of truth for a payment attempt.
// It is created once, transitions at most once to a terminal status,
// and is never mutated afterwards.
type PaymentRecord struct {
	ID            uuid.UUID
	MerchantID    string
	Source        EncryptedSource
	Recipient     EncryptedRecipient
	Amount        decimal.Decimal
	Currency      string
	Status        Status
	BankPaymentID *string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a payment record in Pending status.
func New(merchantID string, source EncryptedSource, recipient EncryptedRecipient, amount decimal.Decimal, currency string) (*PaymentRecord, error) {
	if merchantID == "" {
		return nil, errors.ErrInvalidInput
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &PaymentRecord{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Source:     source,
		Recipient:  recipient,
		Amount:     amount,
		Currency:   strings.ToLower(currency),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanTransitionTo checks if the record can transition to the given status
func (r *PaymentRecord) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusSucceeded,
			StatusRejected,
			StatusFailed,
		},
		StatusSucceeded: {}, // Terminal state
		StatusRejected:  {}, // Terminal state
		StatusFailed:    {}, // Terminal state
	}

	allowed, exists := transitions[r.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the record to a new status
func (r *PaymentRecord) TransitionTo(newStatus Status) error {
	if !r.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(r.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	r.Status = newStatus
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkSucceeded transitions the record to Succeeded and stores the bank's
// transaction reference. FailureReason stays empty; the two terminal fields
// are mutually exclusive.
func (r *PaymentRecord) MarkSucceeded(bankPaymentID string) error {
	if err := r.TransitionTo(StatusSucceeded); err != nil {
		return err
	}
	r.BankPaymentID = &bankPaymentID
	r.FailureReason = nil
	return nil
}

// MarkRejected transitions the record to Rejected with the bank's failure code.
func (r *PaymentRecord) MarkRejected(failureReason string) error {
	if err := r.TransitionTo(StatusRejected); err != nil {
		return err
	}
	r.FailureReason = &failureReason
	r.BankPaymentID = nil
	return nil
}

// MarkFailed transitions the record to Failed. Neither terminal field is set:
// a Failed record means the gateway gave up without a definitive bank answer.
func (r *PaymentRecord) MarkFailed() error {
	return r.TransitionTo(StatusFailed)
}

// IsTerminal checks if the record is in a terminal state
func (r *PaymentRecord) IsTerminal() bool {
	return r.Status == StatusSucceeded ||
		r.Status == StatusRejected ||
		r.Status == StatusFailed
}

// AttemptOutcome classifies a single call to the bank for the attempt log.
type AttemptOutcome string

const (
	AttemptAccepted      AttemptOutcome = "accepted"
	AttemptRejected      AttemptOutcome = "rejected"
	AttemptIndeterminate AttemptOutcome = "indeterminate"
)

// PaymentAttempt is an append-only row recording the outcome of one bank
// call. Unlike PaymentRecord it is written even when the outcome is
// indeterminate, so money potentially in flight always leaves a trace.
type PaymentAttempt struct {
	ID         uuid.UUID
	PaymentID  uuid.UUID
	MerchantID string
	Outcome    AttemptOutcome
	Detail     string
	CreatedAt  time.Time
}

// NewAttempt creates an attempt row for the given payment.
func NewAttempt(paymentID uuid.UUID, merchantID string, outcome AttemptOutcome, detail string) *PaymentAttempt {
	return &PaymentAttempt{
		ID:         uuid.New(),
		PaymentID:  paymentID,
		MerchantID: merchantID,
		Outcome:    outcome,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}
