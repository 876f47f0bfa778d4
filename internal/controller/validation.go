package controller

import (
	"errors"
	"regexp"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

var (
	cvvRegex           = regexp.MustCompile(`^[0-9]{3,4}$`)
	cardNumberRegex    = regexp.MustCompile(`^[0-9]{13,19}$`)
	accountNumberRegex = regexp.MustCompile(`^[0-9]{8}$`)
	sortCodeRegex      = regexp.MustCompile(`^[0-9]{6}$`)
)

const cardExpiryFormat = "01/2006"

var supportedCurrencies = map[string]struct{}{
	"gbp": {},
	"usd": {},
	"eur": {},
}

// validateCreatePayment checks the request field by field and stops at the
// first failure, returning a ValidationError carrying a stable code the
// client can branch on.
func validateCreatePayment(req *CreatePaymentRequest) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return requiredFieldError(ve[0].Field())
		}
		return domainErrors.NewValidationError("body", "ERR_BODY", err.Error())
	}
	if !cvvRegex.MatchString(req.Source.Cvv) {
		return domainErrors.NewValidationError("source.cvv", "ERR_CVV", "Invalid CVV")
	}
	if _, ok := supportedCurrencies[req.Currency]; !ok {
		return domainErrors.NewValidationError("currency", "ERR_CURRENCY", "Specified currency is not supported")
	}
	if !validCardNumber(req.Source.CardNumber) {
		return domainErrors.NewValidationError("source.cardNumber", "ERR_CARD_NO", "Invalid card number")
	}
	expiry, err := time.Parse(cardExpiryFormat, req.Source.CardExpiry)
	if err != nil {
		return domainErrors.NewValidationError("source.cardExpiry", "ERR_CARD_EXP_FORMAT", "Invalid source card expiry")
	}
	if cardExpired(expiry, time.Now().UTC()) {
		return domainErrors.NewValidationError("source.cardExpiry", "ERR_CARD_EXP_EXP", "Source card has expired")
	}
	if !accountNumberRegex.MatchString(req.Recipient.AccountNumber) {
		return domainErrors.NewValidationError("recipient.accountNumber", "ERR_ACC_NO", "Invalid recipient account number")
	}
	if !sortCodeRegex.MatchString(req.Recipient.SortCode) {
		return domainErrors.NewValidationError("recipient.sortCode", "ERR_ACC_SORT_CODE", "Invalid recipient sort code")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domainErrors.NewValidationError("amount", "ERR_AMOUNT", "Amount must be greater than zero")
	}
	return nil
}

// requiredFieldError maps a failed required tag to its stable error code.
func requiredFieldError(field string) error {
	switch field {
	case "Source":
		return domainErrors.NewValidationError("source", "ERR_SOURCE", "No payment source provided")
	case "Recipient":
		return domainErrors.NewValidationError("recipient", "ERR_RECIPIENT", "No payment recipient provided")
	case "Currency":
		return domainErrors.NewValidationError("currency", "ERR_CURRENCY", "Specified currency is not supported")
	default:
		return domainErrors.NewValidationError(field, "ERR_BODY", "missing required field")
	}
}

// validCardNumber checks length and the Luhn checksum.
func validCardNumber(number string) bool {
	if !cardNumberRegex.MatchString(number) {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// cardExpired reports whether the card is expired at the given instant.
// A card is valid through the last day of its expiry month.
func cardExpired(expiry, now time.Time) bool {
	endOfMonth := time.Date(expiry.Year(), expiry.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0).Add(-time.Nanosecond)
	return now.After(endOfMonth)
}
