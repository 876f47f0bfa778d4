package controller

import (
	"time"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	"github.com/shopspring/decimal"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns. Controllers convert them to
// application layer requests before calling business logic.

// PaymentSource is the card being charged.
type PaymentSource struct {
	CardNumber string `json:"cardNumber"`
	CardExpiry string `json:"cardExpiry"`
	Cvv        string `json:"cvv"`
}

// PaymentRecipient is the settlement destination.
type PaymentRecipient struct {
	AccountNumber string `json:"accountNumber"`
	SortCode      string `json:"sortCode"`
}

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	Source    *PaymentSource    `json:"source" validate:"required"`
	Recipient *PaymentRecipient `json:"recipient" validate:"required"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency" validate:"required"`
}

// --- Response DTOs ---

// CreatePaymentResponse acknowledges a created payment.
type CreatePaymentResponse struct {
	ID     string `json:"paymentId"`
	Status string `json:"status"`
}

// MaskedSource is the card view returned on retrieval. All digits except
// the card number tail are masked; expiry is not sensitive on its own.
type MaskedSource struct {
	CardNumber string `json:"cardNumber"`
	CardExpiry string `json:"cardExpiry"`
	Cvv        string `json:"cvv"`
}

// MaskedRecipient is the settlement destination view returned on retrieval.
type MaskedRecipient struct {
	AccountNumber string `json:"accountNumber"`
	SortCode      string `json:"sortCode"`
}

// PaymentDetailsResponse represents a payment in API responses.
type PaymentDetailsResponse struct {
	ID        string          `json:"id"`
	Source    MaskedSource    `json:"source"`
	Recipient MaskedRecipient `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Details   *FailureDetails `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FailureDetails is present only when the bank declined the payment.
type FailureDetails struct {
	FailureReason string `json:"failureReason"`
}

// ErrorResponse is the error envelope for all non-2xx responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromPaymentDetails converts the application view to the API response.
func FromPaymentDetails(d *paymentApp.PaymentDetails) *PaymentDetailsResponse {
	resp := &PaymentDetailsResponse{
		ID: d.ID.String(),
		Source: MaskedSource{
			CardNumber: d.MaskedCardNumber,
			CardExpiry: d.CardExpiry,
			Cvv:        d.MaskedCVV,
		},
		Recipient: MaskedRecipient{
			AccountNumber: d.MaskedAccountNumber,
			SortCode:      d.MaskedSortCode,
		},
		Amount:    d.Amount,
		Currency:  d.Currency,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
	}
	if d.FailureReason != nil {
		resp.Details = &FailureDetails{FailureReason: *d.FailureReason}
	}
	return resp
}
