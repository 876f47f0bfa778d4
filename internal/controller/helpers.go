package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/rs/zerolog/log"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND", "Payment record not found"},
	{domainErrors.ErrDuplicateIdempotencyKey, http.StatusConflict, "IDEM_CONFLICT", "Duplicate idempotency key, this request has already been processed"},
	{domainErrors.ErrBankUnavailable, http.StatusBadGateway, "ERR_DEP_FAIL", "Payment could not be completed, it is safe to retry"},
	{domainErrors.ErrInvalidAmount, http.StatusBadRequest, "ERR_AMOUNT", "Amount must be greater than zero"},
	{domainErrors.ErrMerchantMissing, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Merchant identity required"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    validationErr.Code,
			Message: validationErr.Message,
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, ErrorResponse{Code: m.code, Message: m.message})
			return
		}
	}

	// Everything unmapped is an internal fault. The merchant key being
	// unresolvable lands here deliberately: it is a configuration problem
	// and its details must not leak to the caller.
	log.Error().Err(err).Msg("unhandled error in handler")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Code:    "ERR_INTERNAL",
		Message: "internal server error",
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "ERR_BODY", "invalid JSON: "+err.Error())
	}
	return nil
}
