package testutil

import (
	"encoding/base64"

	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/shopspring/decimal"
)

// Test card details shared by fixtures and request builders.
const (
	TestCardNumber    = "4111111111111111"
	TestCardExpiry    = "12/2030"
	TestCVV           = "123"
	TestAccountNumber = "12345678"
	TestSortCode      = "123456"
)

// TestMerchantKey returns a fixed 32-byte AES-256 key for tests.
func TestMerchantKey() []byte {
	key, _ := base64.StdEncoding.DecodeString(TestMerchantKeyB64)
	return key
}

// TestMerchantKeyB64 is TestMerchantKey in the encoding config uses.
const TestMerchantKeyB64 = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

// NewTestRecord builds a pending record with mock-codec ciphertexts.
func NewTestRecord(merchantID string) *record.PaymentRecord {
	rec, err := record.New(merchantID,
		record.EncryptedSource{
			CardNumberEncrypted: "enc:" + TestCardNumber,
			CardExpiryEncrypted: "enc:" + TestCardExpiry,
			CVVEncrypted:        "enc:" + TestCVV,
		},
		record.EncryptedRecipient{
			AccountNumberEncrypted: "enc:" + TestAccountNumber,
			SortCodeEncrypted:      "enc:" + TestSortCode,
		},
		decimal.NewFromInt(1050), "gbp",
	)
	if err != nil {
		panic(err)
	}
	return rec
}

// NewSucceededRecord builds a record already settled by the bank.
func NewSucceededRecord(merchantID, bankPaymentID string) *record.PaymentRecord {
	rec := NewTestRecord(merchantID)
	if err := rec.MarkSucceeded(bankPaymentID); err != nil {
		panic(err)
	}
	return rec
}

// NewRejectedRecord builds a record the bank declined.
func NewRejectedRecord(merchantID, reason string) *record.PaymentRecord {
	rec := NewTestRecord(merchantID)
	if err := rec.MarkRejected(reason); err != nil {
		panic(err)
	}
	return rec
}

func StrPtr(s string) *string {
	return &s
}
