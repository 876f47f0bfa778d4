package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	"github.com/cassiomorais/gateway/internal/bank"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createFixture struct {
	repo      *testutil.MockRecordRepository
	attempts  *testutil.MockAttemptLogger
	bank      *testutil.MockBankClient
	publisher *testutil.MockPublisher
	registry  *prometheus.Registry
	uc        *paymentApp.CreatePaymentUseCase
}

func newCreateFixture(t *testing.T, async bool) *createFixture {
	t.Helper()
	f := &createFixture{
		repo:      testutil.NewMockRecordRepository(),
		attempts:  testutil.NewMockAttemptLogger(),
		bank:      testutil.NewMockBankClient(),
		publisher: testutil.NewMockPublisher(),
		registry:  prometheus.NewRegistry(),
	}
	f.uc = paymentApp.NewCreatePaymentUseCase(
		f.repo, f.attempts, f.bank,
		testutil.NewMockCodec(), testutil.NewMockKeyResolver(),
		f.publisher, testutil.NewMockTransactionManager(),
		async,
		observability.NewMetrics("test", f.registry),
		zerolog.Nop(),
	)
	return f
}

func validCreateRequest() paymentApp.CreatePaymentRequest {
	return paymentApp.CreatePaymentRequest{
		MerchantID:    "merchant-1",
		CardNumber:    testutil.TestCardNumber,
		CardExpiry:    testutil.TestCardExpiry,
		CVV:           testutil.TestCVV,
		AccountNumber: testutil.TestAccountNumber,
		SortCode:      testutil.TestSortCode,
		Amount:        decimal.NewFromInt(1050),
		Currency:      "gbp",
	}
}

func TestCreatePayment_Sync_Success(t *testing.T) {
	f := newCreateFixture(t, false)
	f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
		return bank.Successful{TransactionID: "bank-tx-1"}
	}

	resp, err := f.uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.False(t, resp.IsAsync)
	assert.Equal(t, record.StatusSucceeded, resp.Record.Status)
	require.NotNil(t, resp.Record.BankPaymentID)
	assert.Equal(t, "bank-tx-1", *resp.Record.BankPaymentID)
	assert.Nil(t, resp.Record.FailureReason)

	stored := f.repo.Stored(resp.Record.ID)
	require.NotNil(t, stored, "terminal outcome must be persisted")
	assert.Equal(t, record.StatusSucceeded, stored.Status)

	attempts := f.attempts.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, record.AttemptAccepted, attempts[0].Outcome)
}

func TestCreatePayment_Sync_SendsPlaintextToBankStoresCiphertext(t *testing.T) {
	f := newCreateFixture(t, false)

	resp, err := f.uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)

	calls := f.bank.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.TestCardNumber, calls[0].Source.CardNumber)
	assert.Equal(t, testutil.TestCVV, calls[0].Source.CVV)
	assert.Equal(t, testutil.TestSortCode, calls[0].Recipient.SortCode)

	stored := f.repo.Stored(resp.Record.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "enc:"+testutil.TestCardNumber, stored.Source.CardNumberEncrypted)
	assert.Equal(t, "enc:"+testutil.TestAccountNumber, stored.Recipient.AccountNumberEncrypted)
}

func TestCreatePayment_Sync_BusinessRejected(t *testing.T) {
	f := newCreateFixture(t, false)
	f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
		return bank.BusinessRejected{Code: "insufficient_funds"}
	}

	resp, err := f.uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err, "a business rejection is a valid terminal outcome, not an error")
	assert.Equal(t, record.StatusRejected, resp.Record.Status)
	require.NotNil(t, resp.Record.FailureReason)
	assert.Equal(t, "insufficient_funds", *resp.Record.FailureReason)
	assert.Nil(t, resp.Record.BankPaymentID)

	stored := f.repo.Stored(resp.Record.ID)
	require.NotNil(t, stored, "rejected outcomes are persisted")

	attempts := f.attempts.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, record.AttemptRejected, attempts[0].Outcome)
}

func TestCreatePayment_Sync_IndeterminateLeavesNoRecord(t *testing.T) {
	outcomes := map[string]bank.Outcome{
		"unknown error": bank.UnknownError{Status: 500},
		"call failure":  bank.CallFailure{Err: errors.New("connection refused")},
	}

	for name, outcome := range outcomes {
		t.Run(name, func(t *testing.T) {
			f := newCreateFixture(t, false)
			f.bank.TransferFundsFunc = func(_ context.Context, _ bank.TransferRequest) bank.Outcome {
				return outcome
			}

			_, err := f.uc.Execute(context.Background(), validCreateRequest())
			assert.ErrorIs(t, err, domainErrors.ErrBankUnavailable)

			attempts := f.attempts.Attempts()
			require.Len(t, attempts, 1, "indeterminate outcomes still leave an attempt row")
			assert.Equal(t, record.AttemptIndeterminate, attempts[0].Outcome)
			assert.Nil(t, f.repo.Stored(attempts[0].PaymentID), "no payment record for an unknown outcome")
		})
	}
}

func TestCreatePayment_UnknownMerchantKeySkipsBank(t *testing.T) {
	f := newCreateFixture(t, false)
	resolver := testutil.NewMockKeyResolver()
	resolver.KeyFunc = func(string) ([]byte, error) {
		return nil, domainErrors.ErrMerchantKeyNotFound
	}
	f.uc = paymentApp.NewCreatePaymentUseCase(
		f.repo, f.attempts, f.bank,
		testutil.NewMockCodec(), resolver,
		f.publisher, testutil.NewMockTransactionManager(),
		false,
		observability.NewMetrics("test", prometheus.NewRegistry()),
		zerolog.Nop(),
	)

	_, err := f.uc.Execute(context.Background(), validCreateRequest())
	assert.ErrorIs(t, err, domainErrors.ErrMerchantKeyNotFound)
	assert.Empty(t, f.bank.Calls(), "must not charge a card we cannot store an outcome for")
}

func TestCreatePayment_InvalidAmount(t *testing.T) {
	f := newCreateFixture(t, false)
	req := validCreateRequest()
	req.Amount = decimal.Zero

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidAmount)
	assert.Empty(t, f.bank.Calls())
}

func TestCreatePayment_Async_PublishesEncryptedEvent(t *testing.T) {
	f := newCreateFixture(t, true)

	resp, err := f.uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.True(t, resp.IsAsync)
	assert.Equal(t, record.StatusPending, resp.Record.Status)
	assert.Empty(t, f.bank.Calls(), "async mode defers the bank call to the worker")

	stored := f.repo.Stored(resp.Record.ID)
	require.NotNil(t, stored)
	assert.Equal(t, record.StatusPending, stored.Status)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, resp.Record.ID.String(), events[0].PaymentID)

	var evt paymentApp.PaymentCreatedEvent
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &evt))
	assert.Equal(t, "merchant-1", evt.MerchantID)
	assert.Equal(t, "enc:"+testutil.TestCardNumber, evt.CardNumberEnc)
	assert.NotContains(t, events[0].Payload, `"`+testutil.TestCardNumber+`"`, "plaintext card data must not reach the stream")
}

func TestCreatePayment_Async_PublishFailure(t *testing.T) {
	f := newCreateFixture(t, true)
	f.publisher.PublishPaymentCreatedFunc = func(context.Context, string, string) error {
		return errors.New("stream unavailable")
	}

	_, err := f.uc.Execute(context.Background(), validCreateRequest())
	assert.Error(t, err)
}

func TestCreatePayment_RecordsDurationByStatus(t *testing.T) {
	f := newCreateFixture(t, false)

	_, err := f.uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)

	families, err := f.registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if *mf.Name != "test_payment_duration_seconds" {
			continue
		}
		found = true
		require.NotEmpty(t, mf.Metric)
		for _, label := range mf.Metric[0].Label {
			if *label.Name == "status" {
				assert.Equal(t, string(record.StatusSucceeded), *label.Value)
			}
		}
		assert.EqualValues(t, 1, mf.Metric[0].Histogram.GetSampleCount())
	}
	assert.True(t, found, "payment_duration should be recorded")
}
