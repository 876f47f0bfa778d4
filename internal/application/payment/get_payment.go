package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/gateway/internal/crypto"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/pkg/mask"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDetails is the retrieval view of a payment. Sensitive fields are
// decrypted and masked; plaintext card data never leaves this use case.
type PaymentDetails struct {
	ID                  uuid.UUID
	Status              record.Status
	MaskedCardNumber    string
	CardExpiry          string
	MaskedCVV           string
	MaskedAccountNumber string
	MaskedSortCode      string
	Amount              decimal.Decimal
	Currency            string
	BankPaymentID       *string
	FailureReason       *string
	CreatedAt           time.Time
}

// GetPaymentUseCase retrieves a payment scoped to the requesting merchant.
type GetPaymentUseCase struct {
	recordRepo record.Repository
	codec      crypto.Codec
	keys       crypto.KeyResolver
}

// NewGetPaymentUseCase creates a new GetPaymentUseCase.
func NewGetPaymentUseCase(recordRepo record.Repository, codec crypto.Codec, keys crypto.KeyResolver) *GetPaymentUseCase {
	return &GetPaymentUseCase{
		recordRepo: recordRepo,
		codec:      codec,
		keys:       keys,
	}
}

// Execute looks up a payment for the merchant. A record owned by another
// merchant and a nonexistent id both surface as ErrRecordNotFound, so a
// caller cannot probe for other merchants' payment ids.
func (uc *GetPaymentUseCase) Execute(ctx context.Context, merchantID string, id uuid.UUID) (*PaymentDetails, error) {
	rec, err := uc.recordRepo.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}

	key, err := uc.keys.Key(merchantID)
	if err != nil {
		return nil, err
	}

	cardNumber, err := uc.codec.Decrypt(rec.Source.CardNumberEncrypted, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt card number: %w", err)
	}
	cardExpiry, err := uc.codec.Decrypt(rec.Source.CardExpiryEncrypted, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt card expiry: %w", err)
	}
	cvv, err := uc.codec.Decrypt(rec.Source.CVVEncrypted, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt cvv: %w", err)
	}
	accountNumber, err := uc.codec.Decrypt(rec.Recipient.AccountNumberEncrypted, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt account number: %w", err)
	}
	sortCode, err := uc.codec.Decrypt(rec.Recipient.SortCodeEncrypted, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt sort code: %w", err)
	}

	return &PaymentDetails{
		ID:                  rec.ID,
		Status:              rec.Status,
		MaskedCardNumber:    mask.CardNumber(cardNumber),
		CardExpiry:          cardExpiry,
		MaskedCVV:           mask.CVV(cvv),
		MaskedAccountNumber: mask.AccountNumber(accountNumber),
		MaskedSortCode:      mask.SortCode(sortCode),
		Amount:              rec.Amount,
		Currency:            rec.Currency,
		BankPaymentID:       rec.BankPaymentID,
		FailureReason:       rec.FailureReason,
		CreatedAt:           rec.CreatedAt,
	}, nil
}
