package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cassiomorais/gateway/internal/bank"
	"github.com/cassiomorais/gateway/internal/crypto"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest holds the input for creating a payment. Card and
// account fields arrive in plaintext and are encrypted before persistence.
type CreatePaymentRequest struct {
	MerchantID    string
	CardNumber    string
	CardExpiry    string
	CVV           string
	AccountNumber string
	SortCode      string
	Amount        decimal.Decimal
	Currency      string
}

// CreatePaymentResponse holds the result of creating a payment.
type CreatePaymentResponse struct {
	Record  *record.PaymentRecord
	IsAsync bool
}

// PaymentCreatedEvent is the stream payload consumed by the settlement
// worker. Sensitive fields are carried encrypted; the worker decrypts them
// with the merchant's key before calling the bank.
type PaymentCreatedEvent struct {
	PaymentID     string `json:"payment_id"`
	MerchantID    string `json:"merchant_id"`
	CardNumberEnc string `json:"card_number_enc"`
	CardExpiryEnc string `json:"card_expiry_enc"`
	CVVEnc        string `json:"cvv_enc"`
	AccountEnc    string `json:"account_number_enc"`
	SortCodeEnc   string `json:"sort_code_enc"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// CreatePaymentUseCase orchestrates payment creation. In sync mode it calls
// the bank inline and persists only terminal outcomes; in async mode it
// persists a pending record and hands settlement to the worker.
type CreatePaymentUseCase struct {
	recordRepo record.Repository
	attempts   record.AttemptLogger
	bankClient BankClient
	codec      crypto.Codec
	keys       crypto.KeyResolver
	publisher  EventPublisher
	txManager  TransactionManager
	async      bool
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewCreatePaymentUseCase creates a new CreatePaymentUseCase.
func NewCreatePaymentUseCase(
	recordRepo record.Repository,
	attempts record.AttemptLogger,
	bankClient BankClient,
	codec crypto.Codec,
	keys crypto.KeyResolver,
	publisher EventPublisher,
	txManager TransactionManager,
	async bool,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *CreatePaymentUseCase {
	return &CreatePaymentUseCase{
		recordRepo: recordRepo,
		attempts:   attempts,
		bankClient: bankClient,
		codec:      codec,
		keys:       keys,
		publisher:  publisher,
		txManager:  txManager,
		async:      async,
		metrics:    metrics,
		logger:     logger,
	}
}

// Execute creates a payment and routes it to the sync or async path.
func (uc *CreatePaymentUseCase) Execute(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	// Resolve the merchant key and encrypt up front. A merchant we cannot
	// encrypt for must never reach the bank: we would have no way to
	// persist the outcome.
	key, err := uc.keys.Key(req.MerchantID)
	if err != nil {
		return nil, err
	}

	source, recipient, err := encryptFields(uc.codec, key, req)
	if err != nil {
		return nil, err
	}

	rec, err := record.New(req.MerchantID, source, recipient, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var resp *CreatePaymentResponse
	if uc.async {
		resp, err = uc.enqueueAsync(ctx, rec)
	} else {
		resp, err = uc.executeSync(ctx, rec, req)
	}
	uc.observeDuration(start, resp, err)
	return resp, err
}

// observeDuration records orchestration latency labelled by where the
// payment ended up.
func (uc *CreatePaymentUseCase) observeDuration(start time.Time, resp *CreatePaymentResponse, err error) {
	label := "error"
	switch {
	case err == nil:
		label = string(resp.Record.Status)
	case errors.Is(err, domainErrors.ErrBankUnavailable):
		label = "indeterminate"
	}
	uc.metrics.PaymentDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// executeSync calls the bank inline and persists only terminal outcomes.
// An indeterminate outcome leaves no payment record, only an attempt row.
func (uc *CreatePaymentUseCase) executeSync(ctx context.Context, rec *record.PaymentRecord, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	outcome := uc.bankClient.TransferFunds(ctx, bank.TransferRequest{
		Source: bank.TransferSource{
			CardNumber: req.CardNumber,
			CardExpiry: req.CardExpiry,
			CVV:        req.CVV,
		},
		Recipient: bank.TransferRecipient{
			AccountNumber: req.AccountNumber,
			SortCode:      req.SortCode,
		},
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	uc.metrics.BankCallsTotal.WithLabelValues(outcomeLabel(outcome)).Inc()

	switch v := outcome.(type) {
	case bank.Successful:
		if err := rec.MarkSucceeded(v.TransactionID); err != nil {
			return nil, err
		}
		if err := uc.persistTerminal(ctx, rec, record.AttemptAccepted, v.TransactionID); err != nil {
			return nil, err
		}
		uc.metrics.PaymentsTotal.WithLabelValues(string(record.StatusSucceeded)).Inc()
		return &CreatePaymentResponse{Record: rec}, nil

	case bank.BusinessRejected:
		if err := rec.MarkRejected(v.Code); err != nil {
			return nil, err
		}
		if err := uc.persistTerminal(ctx, rec, record.AttemptRejected, v.Code); err != nil {
			return nil, err
		}
		uc.metrics.PaymentsTotal.WithLabelValues(string(record.StatusRejected)).Inc()
		return &CreatePaymentResponse{Record: rec}, nil

	default:
		return nil, uc.handleIndeterminate(ctx, rec, outcome)
	}
}

// persistTerminal writes the terminal record and its attempt row atomically.
func (uc *CreatePaymentUseCase) persistTerminal(ctx context.Context, rec *record.PaymentRecord, outcome record.AttemptOutcome, detail string) error {
	return uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.recordRepo.Add(txCtx, rec); err != nil {
			return err
		}
		return uc.attempts.Append(txCtx, record.NewAttempt(rec.ID, rec.MerchantID, outcome, detail))
	})
}

// handleIndeterminate records the dangerous case: the bank may or may not
// have moved money, and the gateway cannot tell. No payment record is
// written, but the attempt log always keeps a trace.
func (uc *CreatePaymentUseCase) handleIndeterminate(ctx context.Context, rec *record.PaymentRecord, outcome bank.Outcome) error {
	uc.metrics.IndeterminateOutcomes.Inc()

	uc.logger.Error().
		Str("payment_id", rec.ID.String()).
		Str("merchant_id", rec.MerchantID).
		Str("amount", rec.Amount.String()).
		Str("currency", rec.Currency).
		Str("bank_outcome", bank.Describe(outcome)).
		Msg("bank outcome unknown, funds may be in flight")

	attempt := record.NewAttempt(rec.ID, rec.MerchantID, record.AttemptIndeterminate, bank.Describe(outcome))
	if err := uc.attempts.Append(ctx, attempt); err != nil {
		uc.logger.Error().Err(err).
			Str("payment_id", rec.ID.String()).
			Msg("failed to append indeterminate attempt")
	}

	return domainErrors.ErrBankUnavailable
}

// enqueueAsync persists the record as pending and publishes the settlement
// event. The worker drives it to a terminal status.
func (uc *CreatePaymentUseCase) enqueueAsync(ctx context.Context, rec *record.PaymentRecord) (*CreatePaymentResponse, error) {
	if err := uc.recordRepo.Add(ctx, rec); err != nil {
		return nil, err
	}

	evt := PaymentCreatedEvent{
		PaymentID:     rec.ID.String(),
		MerchantID:    rec.MerchantID,
		CardNumberEnc: rec.Source.CardNumberEncrypted,
		CardExpiryEnc: rec.Source.CardExpiryEncrypted,
		CVVEnc:        rec.Source.CVVEncrypted,
		AccountEnc:    rec.Recipient.AccountNumberEncrypted,
		SortCodeEnc:   rec.Recipient.SortCodeEncrypted,
		Amount:        rec.Amount.String(),
		Currency:      rec.Currency,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal payment created event: %w", err)
	}

	if err := uc.publisher.PublishPaymentCreated(ctx, evt.PaymentID, string(payload)); err != nil {
		// The record stays Pending; reconciliation picks it up.
		uc.logger.Error().Err(err).
			Str("payment_id", evt.PaymentID).
			Msg("failed to publish payment created event")
		return nil, fmt.Errorf("publish payment created event: %w", err)
	}

	uc.metrics.PaymentsTotal.WithLabelValues(string(record.StatusPending)).Inc()
	return &CreatePaymentResponse{Record: rec, IsAsync: true}, nil
}

// encryptFields encrypts the sensitive request fields under the merchant key.
func encryptFields(codec crypto.Codec, key []byte, req CreatePaymentRequest) (record.EncryptedSource, record.EncryptedRecipient, error) {
	var (
		source    record.EncryptedSource
		recipient record.EncryptedRecipient
		err       error
	)

	if source.CardNumberEncrypted, err = codec.Encrypt(req.CardNumber, key); err != nil {
		return source, recipient, fmt.Errorf("encrypt card number: %w", err)
	}
	if source.CardExpiryEncrypted, err = codec.Encrypt(req.CardExpiry, key); err != nil {
		return source, recipient, fmt.Errorf("encrypt card expiry: %w", err)
	}
	if source.CVVEncrypted, err = codec.Encrypt(req.CVV, key); err != nil {
		return source, recipient, fmt.Errorf("encrypt cvv: %w", err)
	}
	if recipient.AccountNumberEncrypted, err = codec.Encrypt(req.AccountNumber, key); err != nil {
		return source, recipient, fmt.Errorf("encrypt account number: %w", err)
	}
	if recipient.SortCodeEncrypted, err = codec.Encrypt(req.SortCode, key); err != nil {
		return source, recipient, fmt.Errorf("encrypt sort code: %w", err)
	}
	return source, recipient, nil
}

// outcomeLabel maps a bank outcome to its metric label.
func outcomeLabel(o bank.Outcome) string {
	switch o.(type) {
	case bank.Successful:
		return "successful"
	case bank.BusinessRejected:
		return "business_rejected"
	case bank.UnknownError:
		return "unknown_error"
	case bank.CallFailure:
		return "call_failure"
	default:
		return "unclassified"
	}
}
