package payment_test

import (
	"context"
	"testing"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGetUseCase(repo *testutil.MockRecordRepository) *paymentApp.GetPaymentUseCase {
	return paymentApp.NewGetPaymentUseCase(repo, testutil.NewMockCodec(), testutil.NewMockKeyResolver())
}

func TestGetPayment_MasksSensitiveFields(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockRecordRepository()
	rec := testutil.NewSucceededRecord("merchant-1", "bank-tx-9")
	require.NoError(t, repo.Add(ctx, rec))

	details, err := newGetUseCase(repo).Execute(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)

	assert.Equal(t, "XXXXXXXXXXXX1111", details.MaskedCardNumber)
	assert.Equal(t, "XXX", details.MaskedCVV)
	assert.Equal(t, "XXXXXX78", details.MaskedAccountNumber)
	assert.Equal(t, "XXXX56", details.MaskedSortCode)
	assert.Equal(t, testutil.TestCardExpiry, details.CardExpiry, "expiry is not masked")
	assert.Equal(t, record.StatusSucceeded, details.Status)
	require.NotNil(t, details.BankPaymentID)
	assert.Equal(t, "bank-tx-9", *details.BankPaymentID)
	assert.Nil(t, details.FailureReason)
}

func TestGetPayment_RejectedCarriesFailureReason(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockRecordRepository()
	rec := testutil.NewRejectedRecord("merchant-1", "card_expired")
	require.NoError(t, repo.Add(ctx, rec))

	details, err := newGetUseCase(repo).Execute(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)

	assert.Equal(t, record.StatusRejected, details.Status)
	require.NotNil(t, details.FailureReason)
	assert.Equal(t, "card_expired", *details.FailureReason)
	assert.Nil(t, details.BankPaymentID)
}

func TestGetPayment_ForeignMerchantIndistinguishableFromMissing(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockRecordRepository()
	rec := testutil.NewTestRecord("merchant-1")
	require.NoError(t, repo.Add(ctx, rec))

	uc := newGetUseCase(repo)

	_, errForeign := uc.Execute(ctx, "merchant-2", rec.ID)
	_, errMissing := uc.Execute(ctx, "merchant-2", uuid.New())

	assert.ErrorIs(t, errForeign, domainErrors.ErrRecordNotFound)
	assert.ErrorIs(t, errMissing, domainErrors.ErrRecordNotFound)
	assert.Equal(t, errForeign.Error(), errMissing.Error(), "existence must not leak through the error")
}
