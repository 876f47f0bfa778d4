package controller

import (
	"net/http"

	paymentApp "github.com/cassiomorais/gateway/internal/application/payment"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentController handles payment-related HTTP requests.
type PaymentController struct {
	createPayment *paymentApp.CreatePaymentUseCase
	getPayment    *paymentApp.GetPaymentUseCase
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	createPayment *paymentApp.CreatePaymentUseCase,
	getPayment *paymentApp.GetPaymentUseCase,
) *PaymentController {
	return &PaymentController{
		createPayment: createPayment,
		getPayment:    getPayment,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := middleware.GetMerchantID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrMerchantMissing)
		return
	}

	var req CreatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCreatePayment(&req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.createPayment.Execute(r.Context(), paymentApp.CreatePaymentRequest{
		MerchantID:    merchantID,
		CardNumber:    req.Source.CardNumber,
		CardExpiry:    req.Source.CardExpiry,
		CVV:           req.Source.Cvv,
		AccountNumber: req.Recipient.AccountNumber,
		SortCode:      req.Recipient.SortCode,
		Amount:        req.Amount,
		Currency:      req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.IsAsync {
		status = http.StatusAccepted
	}
	writeJSON(w, status, CreatePaymentResponse{
		ID:     resp.Record.ID.String(),
		Status: string(resp.Record.Status),
	})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := middleware.GetMerchantID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrMerchantMissing)
		return
	}

	// An unparsable id gets the same 404 as a missing record. Telling a
	// caller "that id is malformed" would split the not-found surface in
	// two and make probing easier.
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.ErrRecordNotFound)
		return
	}

	details, err := h.getPayment.Execute(r.Context(), merchantID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPaymentDetails(details))
}
