package payment

import (
	"context"
	"fmt"

	"github.com/cassiomorais/gateway/internal/bank"
	"github.com/cassiomorais/gateway/internal/crypto"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlePaymentUseCase drives a pending payment to a terminal status. It is
// the worker-side counterpart of the sync create path and applies the same
// bank outcome classification.
type SettlePaymentUseCase struct {
	recordRepo record.Repository
	attempts   record.AttemptLogger
	bankClient BankClient
	codec      crypto.Codec
	keys       crypto.KeyResolver
	txManager  TransactionManager
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewSettlePaymentUseCase creates a new SettlePaymentUseCase.
func NewSettlePaymentUseCase(
	recordRepo record.Repository,
	attempts record.AttemptLogger,
	bankClient BankClient,
	codec crypto.Codec,
	keys crypto.KeyResolver,
	txManager TransactionManager,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *SettlePaymentUseCase {
	return &SettlePaymentUseCase{
		recordRepo: recordRepo,
		attempts:   attempts,
		bankClient: bankClient,
		codec:      codec,
		keys:       keys,
		txManager:  txManager,
		metrics:    metrics,
		logger:     logger,
	}
}

// Execute settles one payment created event. Redelivered events for already
// terminal records are acknowledged without a second bank call. An
// indeterminate outcome returns ErrBankUnavailable and leaves the record
// Pending; the worker routes the event to the dead letter stream.
func (uc *SettlePaymentUseCase) Execute(ctx context.Context, evt PaymentCreatedEvent) error {
	paymentID, err := uuid.Parse(evt.PaymentID)
	if err != nil {
		return fmt.Errorf("parse payment id %q: %w", evt.PaymentID, err)
	}

	rec, err := uc.recordRepo.GetByID(ctx, evt.MerchantID, paymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", evt.PaymentID, err)
	}
	if rec.IsTerminal() {
		uc.logger.Debug().
			Str("payment_id", evt.PaymentID).
			Str("status", string(rec.Status)).
			Msg("payment already settled, skipping redelivered event")
		return nil
	}

	req, err := uc.decryptTransfer(rec)
	if err != nil {
		return err
	}

	outcome := uc.bankClient.TransferFunds(ctx, req)
	uc.metrics.BankCallsTotal.WithLabelValues(outcomeLabel(outcome)).Inc()

	switch v := outcome.(type) {
	case bank.Successful:
		if err := rec.MarkSucceeded(v.TransactionID); err != nil {
			return err
		}
		if err := uc.persistSettlement(ctx, rec, record.AttemptAccepted, v.TransactionID); err != nil {
			return err
		}
		uc.metrics.PaymentsTotal.WithLabelValues(string(record.StatusSucceeded)).Inc()
		return nil

	case bank.BusinessRejected:
		if err := rec.MarkRejected(v.Code); err != nil {
			return err
		}
		if err := uc.persistSettlement(ctx, rec, record.AttemptRejected, v.Code); err != nil {
			return err
		}
		uc.metrics.PaymentsTotal.WithLabelValues(string(record.StatusRejected)).Inc()
		return nil

	default:
		uc.metrics.IndeterminateOutcomes.Inc()
		uc.logger.Error().
			Str("payment_id", rec.ID.String()).
			Str("merchant_id", rec.MerchantID).
			Str("amount", rec.Amount.String()).
			Str("currency", rec.Currency).
			Str("bank_outcome", bank.Describe(outcome)).
			Msg("bank outcome unknown during settlement, funds may be in flight")

		attempt := record.NewAttempt(rec.ID, rec.MerchantID, record.AttemptIndeterminate, bank.Describe(outcome))
		if err := uc.attempts.Append(ctx, attempt); err != nil {
			uc.logger.Error().Err(err).
				Str("payment_id", rec.ID.String()).
				Msg("failed to append indeterminate attempt")
		}
		return domainErrors.ErrBankUnavailable
	}
}

// persistSettlement writes the terminal transition and its attempt row
// atomically.
func (uc *SettlePaymentUseCase) persistSettlement(ctx context.Context, rec *record.PaymentRecord, outcome record.AttemptOutcome, detail string) error {
	return uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.recordRepo.Update(txCtx, rec); err != nil {
			return err
		}
		return uc.attempts.Append(txCtx, record.NewAttempt(rec.ID, rec.MerchantID, outcome, detail))
	})
}

// decryptTransfer rebuilds the plaintext transfer request from the stored
// ciphertexts. The stored record, not the event payload, is the source of
// truth for what gets sent to the bank.
func (uc *SettlePaymentUseCase) decryptTransfer(rec *record.PaymentRecord) (bank.TransferRequest, error) {
	var req bank.TransferRequest

	key, err := uc.keys.Key(rec.MerchantID)
	if err != nil {
		return req, err
	}

	if req.Source.CardNumber, err = uc.codec.Decrypt(rec.Source.CardNumberEncrypted, key); err != nil {
		return req, fmt.Errorf("decrypt card number: %w", err)
	}
	if req.Source.CardExpiry, err = uc.codec.Decrypt(rec.Source.CardExpiryEncrypted, key); err != nil {
		return req, fmt.Errorf("decrypt card expiry: %w", err)
	}
	if req.Source.CVV, err = uc.codec.Decrypt(rec.Source.CVVEncrypted, key); err != nil {
		return req, fmt.Errorf("decrypt cvv: %w", err)
	}
	if req.Recipient.AccountNumber, err = uc.codec.Decrypt(rec.Recipient.AccountNumberEncrypted, key); err != nil {
		return req, fmt.Errorf("decrypt account number: %w", err)
	}
	if req.Recipient.SortCode, err = uc.codec.Decrypt(rec.Recipient.SortCodeEncrypted, key); err != nil {
		return req, fmt.Errorf("decrypt sort code: %w", err)
	}

	req.Amount = rec.Amount
	req.Currency = rec.Currency
	return req, nil
}
