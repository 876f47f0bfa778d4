package bank

import "fmt"

// Outcome is the closed classification of a funds transfer call.
// Exactly one of the variants below is returned for every call:
//
//	Successful       the bank accepted the transfer (HTTP 200)
//	BusinessRejected the bank definitively refused it (HTTP 422)
//	UnknownError     the bank answered with an unclassifiable status
//	CallFailure      no classifiable answer was received at all
//
// UnknownError and CallFailure are both indeterminate: the true outcome of
// the transfer is not known and callers must not record a guess.
type Outcome interface {
	sealed()
}

// Successful carries the bank's transaction reference.
type Successful struct {
	TransactionID string
}

// BusinessRejected carries the bank's failure code.
type BusinessRejected struct {
	Code string
}

// UnknownError carries the unclassifiable HTTP status the bank returned
// after retries were exhausted.
type UnknownError struct {
	Status int
}

// CallFailure carries the transport-level cause after retries were
// exhausted, or the open-circuit error when the breaker refused the call.
type CallFailure struct {
	Err error
}

func (Successful) sealed()       {}
func (BusinessRejected) sealed() {}
func (UnknownError) sealed()     {}
func (CallFailure) sealed()      {}

// Indeterminate reports whether the outcome leaves the transfer's true
// result unknown.
func Indeterminate(o Outcome) bool {
	switch o.(type) {
	case UnknownError, CallFailure:
		return true
	default:
		return false
	}
}

// Describe renders an outcome for logs and the attempt trail.
func Describe(o Outcome) string {
	switch v := o.(type) {
	case Successful:
		return fmt.Sprintf("accepted, bank transaction %s", v.TransactionID)
	case BusinessRejected:
		return fmt.Sprintf("rejected, code %s", v.Code)
	case UnknownError:
		return fmt.Sprintf("unknown bank response, status %d", v.Status)
	case CallFailure:
		return fmt.Sprintf("call failed: %v", v.Err)
	default:
		return "unclassified outcome"
	}
}
