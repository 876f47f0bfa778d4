package memory

import (
	"context"
	"testing"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t *testing.T, merchantID string) *record.PaymentRecord {
	t.Helper()
	rec, err := record.New(merchantID,
		record.EncryptedSource{CardNumberEncrypted: "enc-card", CardExpiryEncrypted: "enc-exp", CVVEncrypted: "enc-cvv"},
		record.EncryptedRecipient{AccountNumberEncrypted: "enc-acc", SortCodeEncrypted: "enc-sort"},
		decimal.NewFromInt(100), "gbp",
	)
	require.NoError(t, err)
	return rec
}

func TestStore_AddRejectsDuplicateID(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")

	require.NoError(t, store.Add(ctx, rec))

	dup := newRecord(t, "merchant-1")
	dup.ID = rec.ID
	dup.Currency = "usd"

	err := store.Add(ctx, dup)
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateRecordID)

	got, err := store.GetByID(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "gbp", got.Currency, "failed insert must not overwrite the existing record")
}

func TestStore_UpdateNeverInserts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")

	err := store.Update(ctx, rec)
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)
	assert.Zero(t, store.Len())
}

func TestStore_UpdateReplacesExisting(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")
	require.NoError(t, store.Add(ctx, rec))

	require.NoError(t, rec.MarkSucceeded("bank-tx-1"))
	require.NoError(t, store.Update(ctx, rec))

	got, err := store.GetByID(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusSucceeded, got.Status)
	require.NotNil(t, got.BankPaymentID)
	assert.Equal(t, "bank-tx-1", *got.BankPaymentID)
}

func TestStore_GetByIDScopedByMerchant(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")
	require.NoError(t, store.Add(ctx, rec))

	_, err := store.GetByID(ctx, "merchant-2", rec.ID)
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)

	_, err = store.GetByID(ctx, "merchant-1", uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)
}

func TestStore_UpdateScopedByMerchant(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")
	require.NoError(t, store.Add(ctx, rec))

	foreign := *rec
	foreign.MerchantID = "merchant-2"
	err := store.Update(ctx, &foreign)
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	rec := newRecord(t, "merchant-1")
	require.NoError(t, store.Add(ctx, rec))

	got, err := store.GetByID(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)
	got.Currency = "usd"

	again, err := store.GetByID(ctx, "merchant-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "gbp", again.Currency)
}
