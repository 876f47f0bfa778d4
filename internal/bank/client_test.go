package bank_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cassiomorais/gateway/internal/bank"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond}
}

func transferRequest() bank.TransferRequest {
	return bank.TransferRequest{
		Source: bank.TransferSource{
			CardNumber: "4111111111111111",
			CardExpiry: "01/2030",
			CVV:        "123",
		},
		Recipient: bank.TransferRecipient{
			AccountNumber: "12345678",
			SortCode:      "123456",
		},
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "gbp",
	}
}

func TestTransferFunds_Successful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"tx-1"}`))
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	ok, isOK := outcome.(bank.Successful)
	require.True(t, isOK, "expected Successful, got %T", outcome)
	assert.Equal(t, "tx-1", ok.TransactionID)
	assert.False(t, bank.Indeterminate(outcome))
}

func TestTransferFunds_BusinessRejected(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"insufficient_funds"}`))
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	rejected, isRejected := outcome.(bank.BusinessRejected)
	require.True(t, isRejected, "expected BusinessRejected, got %T", outcome)
	assert.Equal(t, "insufficient_funds", rejected.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "business rejections must not be retried")
	assert.False(t, bank.Indeterminate(outcome))
}

func TestTransferFunds_ServerErrorRetriedThenUnknown(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	unknown, isUnknown := outcome.(bank.UnknownError)
	require.True(t, isUnknown, "expected UnknownError, got %T", outcome)
	assert.Equal(t, http.StatusInternalServerError, unknown.Status)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls), "1 initial attempt + 3 retries")
	assert.True(t, bank.Indeterminate(outcome))
}

func TestTransferFunds_RecoversAfterTransientError(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"tx-2"}`))
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	ok, isOK := outcome.(bank.Successful)
	require.True(t, isOK, "expected Successful, got %T", outcome)
	assert.Equal(t, "tx-2", ok.TransactionID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTransferFunds_UnexpectedStatusNotRetried(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	unknown, isUnknown := outcome.(bank.UnknownError)
	require.True(t, isUnknown, "expected UnknownError, got %T", outcome)
	assert.Equal(t, http.StatusNotFound, unknown.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTransferFunds_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	failure, isFailure := outcome.(bank.CallFailure)
	require.True(t, isFailure, "expected CallFailure, got %T", outcome)
	assert.Error(t, failure.Err)
	assert.True(t, bank.Indeterminate(outcome))
}

func TestTransferFunds_UnparsableSuccessBodyIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond}))
	outcome := client.TransferFunds(context.Background(), transferRequest())

	assert.True(t, bank.Indeterminate(outcome), "expected indeterminate, got %T", outcome)
}

func TestTransferFunds_RecordsDurationAndRetries(t *testing.T) {
	calls := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"tx-9"}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	client := bank.NewClient(srv.URL, bank.WithRetryConfig(fastRetry()), bank.WithMetrics(metrics))
	outcome := client.TransferFunds(context.Background(), transferRequest())
	_, isOK := outcome.(bank.Successful)
	require.True(t, isOK, "expected Successful, got %T", outcome)

	families, err := reg.Gather()
	require.NoError(t, err)

	var foundRetries, foundDuration bool
	for _, mf := range families {
		switch *mf.Name {
		case "test_bank_call_retries_total":
			foundRetries = true
			require.NotEmpty(t, mf.Metric)
			assert.EqualValues(t, 2, mf.Metric[0].Counter.GetValue(), "two failed attempts before success")
		case "test_bank_call_duration_seconds":
			foundDuration = true
			require.NotEmpty(t, mf.Metric)
			assert.EqualValues(t, 1, mf.Metric[0].Histogram.GetSampleCount())
		}
	}
	assert.True(t, foundRetries, "bank_call_retries should be recorded")
	assert.True(t, foundDuration, "bank_call_duration should be recorded")
}
