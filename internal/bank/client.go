// Package bank implements the HTTP client for the external settlement
// provider. The client performs the call, retries transient failures and
// classifies the raw result; it never touches domain state.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// TransferRequest carries the plaintext fields the bank's wire contract
// requires. Encryption governs storage, not this payload.
type TransferRequest struct {
	Source    TransferSource    `json:"source"`
	Recipient TransferRecipient `json:"recipient"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
}

// TransferSource holds the card fields of a transfer.
type TransferSource struct {
	CardNumber string `json:"cardNumber"`
	CardExpiry string `json:"cardExpiry"`
	CVV        string `json:"cvv"`
}

// TransferRecipient holds the settlement destination fields.
type TransferRecipient struct {
	AccountNumber string `json:"accountNumber"`
	SortCode      string `json:"sortCode"`
}

type successBody struct {
	ID string `json:"id"`
}

type errorBody struct {
	Code string `json:"code"`
}

// transientError marks a failure worth retrying: a transport error or a
// retryable server-side status (5xx, 408).
type transientError struct {
	status int // 0 when the failure was transport-level
	err    error
}

func (e *transientError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("bank call failed: %v", e.err)
	}
	return fmt.Sprintf("bank responded with status %d", e.status)
}

func (e *transientError) Unwrap() error { return e.err }

// Client calls the settlement provider over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCfg   retry.Config
	breaker    *gobreaker.CircuitBreaker[Outcome]
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records call duration and retry counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a bank client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		retryCfg:   retry.DefaultConfig(),
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[Outcome](gobreaker.Settings{
		Name:        "bank-transfer",
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})

	return c
}

// TransferFunds submits the transfer and classifies the result. The retry
// loop honours ctx between attempts; cancellation surfaces as CallFailure.
func (c *Client) TransferFunds(ctx context.Context, req TransferRequest) Outcome {
	if c.metrics != nil {
		start := time.Now()
		defer func() {
			c.metrics.BankCallDuration.Observe(time.Since(start).Seconds())
		}()
	}

	var last Outcome

	_, err := c.breaker.Execute(func() (Outcome, error) {
		outcome, terr := c.transferWithRetry(ctx, req)
		last = outcome
		// Indeterminate results count against the breaker.
		return outcome, terr
	})
	if err != nil {
		if last == nil {
			// Breaker refused the call outright.
			return CallFailure{Err: err}
		}
	}
	return last
}

func (c *Client) transferWithRetry(ctx context.Context, req TransferRequest) (Outcome, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return CallFailure{Err: err}, err
	}

	retryable := func(err error) bool {
		var te *transientError
		return errors.As(err, &te)
	}

	var attempts int
	outcome, err := retry.DoWithResult(ctx, c.retryCfg, retryable, func() (Outcome, error) {
		attempts++
		if attempts > 1 && c.metrics != nil {
			c.metrics.BankCallRetries.Inc()
		}
		return c.transferOnce(ctx, body)
	})
	if err == nil {
		return outcome, nil
	}

	// Retries exhausted (or ctx cancelled): collapse to an indeterminate
	// variant carrying whatever we last saw.
	var te *transientError
	if errors.As(err, &te) && te.status != 0 {
		return UnknownError{Status: te.status}, err
	}
	return CallFailure{Err: err}, err
}

func (c *Client) transferOnce(ctx context.Context, body []byte) (Outcome, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("bank call transport failure")
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &transientError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var ok successBody
		if err := json.Unmarshal(respBody, &ok); err != nil || ok.ID == "" {
			// A 200 we cannot parse is as ambiguous as a 500.
			return nil, &transientError{status: resp.StatusCode, err: err}
		}
		return Successful{TransactionID: ok.ID}, nil

	case resp.StatusCode == http.StatusUnprocessableEntity:
		var rejected errorBody
		if err := json.Unmarshal(respBody, &rejected); err != nil {
			return UnknownError{Status: resp.StatusCode}, nil
		}
		return BusinessRejected{Code: rejected.Code}, nil

	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusRequestTimeout:
		return nil, &transientError{status: resp.StatusCode}

	default:
		// Definitive but unclassifiable; retrying will not change it.
		return UnknownError{Status: resp.StatusCode}, nil
	}
}
