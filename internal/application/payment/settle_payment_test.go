package payment_test

import (
	"context"
	"errors"
	"testing"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	"github.com/cassiomorais/gateway/internal/bank"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settleFixture struct {
	repo     *testutil.MockRecordRepository
	attempts *testutil.MockAttemptLogger
	bank     *testutil.MockBankClient
	uc       *paymentApp.SettlePaymentUseCase
}

func newSettleFixture(t *testing.T) *settleFixture {
	t.Helper()
	f := &settleFixture{
		repo:     testutil.NewMockRecordRepository(),
		attempts: testutil.NewMockAttemptLogger(),
		bank:     testutil.NewMockBankClient(),
	}
	f.uc = paymentApp.NewSettlePaymentUseCase(
		f.repo, f.attempts, f.bank,
		testutil.NewMockCodec(), testutil.NewMockKeyResolver(),
		testutil.NewMockTransactionManager(),
		observability.NewMetrics("test", prometheus.NewRegistry()),
		zerolog.Nop(),
	)
	return f
}

func pendingEvent(t *testing.T, f *settleFixture) paymentApp.PaymentCreatedEvent {
	t.Helper()
	rec := testutil.NewTestRecord("merchant-1")
	require.NoError(t, f.repo.Add(context.Background(), rec))
	return paymentApp.PaymentCreatedEvent{
		PaymentID:  rec.ID.String(),
		MerchantID: rec.MerchantID,
	}
}

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestSettlePayment_Success(t *testing.T) {
	f := newSettleFixture(t)
	evt := pendingEvent(t, f)
	f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
		return bank.Successful{TransactionID: "bank-tx-7"}
	}

	require.NoError(t, f.uc.Execute(context.Background(), evt))

	stored, err := f.repo.GetByID(context.Background(), "merchant-1", mustParse(t, evt.PaymentID))
	require.NoError(t, err)
	assert.Equal(t, record.StatusSucceeded, stored.Status)
	require.NotNil(t, stored.BankPaymentID)
	assert.Equal(t, "bank-tx-7", *stored.BankPaymentID)

	calls := f.bank.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.TestCardNumber, calls[0].Source.CardNumber, "the bank receives decrypted plaintext")
}

func TestSettlePayment_Rejected(t *testing.T) {
	f := newSettleFixture(t)
	evt := pendingEvent(t, f)
	f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
		return bank.BusinessRejected{Code: "insufficient_funds"}
	}

	require.NoError(t, f.uc.Execute(context.Background(), evt))

	stored, err := f.repo.GetByID(context.Background(), "merchant-1", mustParse(t, evt.PaymentID))
	require.NoError(t, err)
	assert.Equal(t, record.StatusRejected, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "insufficient_funds", *stored.FailureReason)
}

func TestSettlePayment_IndeterminateStaysPending(t *testing.T) {
	f := newSettleFixture(t)
	evt := pendingEvent(t, f)
	f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
		return bank.CallFailure{Err: errors.New("connection refused")}
	}

	err := f.uc.Execute(context.Background(), evt)
	assert.ErrorIs(t, err, domainErrors.ErrBankUnavailable)

	stored, getErr := f.repo.GetByID(context.Background(), "merchant-1", mustParse(t, evt.PaymentID))
	require.NoError(t, getErr)
	assert.Equal(t, record.StatusPending, stored.Status, "record stays pending for reconciliation")

	attempts := f.attempts.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, record.AttemptIndeterminate, attempts[0].Outcome)
}

func TestSettlePayment_RedeliveredTerminalEventIsNoop(t *testing.T) {
	f := newSettleFixture(t)
	rec := testutil.NewSucceededRecord("merchant-1", "bank-tx-1")
	require.NoError(t, f.repo.Add(context.Background(), rec))

	err := f.uc.Execute(context.Background(), paymentApp.PaymentCreatedEvent{
		PaymentID:  rec.ID.String(),
		MerchantID: rec.MerchantID,
	})
	require.NoError(t, err)
	assert.Empty(t, f.bank.Calls(), "an already settled payment must not be charged again")
}

func TestSettlePayment_UnknownPayment(t *testing.T) {
	f := newSettleFixture(t)

	err := f.uc.Execute(context.Background(), paymentApp.PaymentCreatedEvent{
		PaymentID:  "0e4a1ef6-59b3-4e55-bf3b-8b0cf0f0f0f0",
		MerchantID: "merchant-1",
	})
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)
}

func TestSettlePayment_MalformedPaymentID(t *testing.T) {
	f := newSettleFixture(t)

	err := f.uc.Execute(context.Background(), paymentApp.PaymentCreatedEvent{
		PaymentID:  "not-a-uuid",
		MerchantID: "merchant-1",
	})
	assert.Error(t, err)
	assert.Empty(t, f.bank.Calls())
}
