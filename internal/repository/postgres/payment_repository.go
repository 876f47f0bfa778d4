package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

// PaymentRepository implements record.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Add inserts a new payment record. A colliding id is a hard error; the
// existing row is never overwritten.
func (r *PaymentRepository) Add(ctx context.Context, rec *record.PaymentRecord) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, merchant_id, card_number_enc, card_expiry_enc, cvv_enc,
		  account_number_enc, sort_code_enc, amount, currency, status,
		  bank_payment_id, failure_reason, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.MerchantID,
		rec.Source.CardNumberEncrypted, rec.Source.CardExpiryEncrypted, rec.Source.CVVEncrypted,
		rec.Recipient.AccountNumberEncrypted, rec.Recipient.SortCodeEncrypted,
		rec.Amount.String(), rec.Currency, string(rec.Status),
		rec.BankPaymentID, rec.FailureReason, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domainErrors.ErrDuplicateRecordID
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// Update replaces the record matching (merchant_id, id). It never inserts:
// zero rows affected means the record does not exist for this merchant.
func (r *PaymentRepository) Update(ctx context.Context, rec *record.PaymentRecord) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments SET
		  status=$1, bank_payment_id=$2, failure_reason=$3, updated_at=$4
		 WHERE id=$5 AND merchant_id=$6`,
		string(rec.Status), rec.BankPaymentID, rec.FailureReason, rec.UpdatedAt,
		rec.ID, rec.MerchantID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrRecordNotFound
	}
	return nil
}

// GetByID retrieves a record scoped by merchant. A record owned by another
// merchant scans as no rows, identical to a nonexistent id.
func (r *PaymentRepository) GetByID(ctx context.Context, merchantID string, id uuid.UUID) (*record.PaymentRecord, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT id, merchant_id, card_number_enc, card_expiry_enc, cvv_enc,
		        account_number_enc, sort_code_enc, amount, currency, status,
		        bank_payment_id, failure_reason, created_at, updated_at
		 FROM payments WHERE merchant_id = $1 AND id = $2`,
		merchantID, id,
	)

	var (
		rec       record.PaymentRecord
		amountStr string
		status    string
	)
	err := row.Scan(
		&rec.ID, &rec.MerchantID,
		&rec.Source.CardNumberEncrypted, &rec.Source.CardExpiryEncrypted, &rec.Source.CVVEncrypted,
		&rec.Recipient.AccountNumberEncrypted, &rec.Recipient.SortCodeEncrypted,
		&amountStr, &rec.Currency, &status,
		&rec.BankPaymentID, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	rec.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	rec.Status = record.Status(status)

	return &rec, nil
}
