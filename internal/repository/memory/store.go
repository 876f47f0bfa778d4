// Package memory provides an in-process record store with the same
// semantics as the PostgreSQL repository. It backs tests and local
// development runs that skip the database.
package memory

import (
	"context"
	"sync"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/google/uuid"
)

// Store is a thread-safe in-memory implementation of record.Repository.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]record.PaymentRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[uuid.UUID]record.PaymentRecord)}
}

// Add inserts a record, rejecting a duplicate id without touching the
// stored row.
func (s *Store) Add(_ context.Context, rec *record.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return domainErrors.ErrDuplicateRecordID
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

// Update replaces an existing record owned by the same merchant. It never
// inserts.
func (s *Store) Update(_ context.Context, rec *record.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.records[rec.ID]
	if !exists || existing.MerchantID != rec.MerchantID {
		return domainErrors.ErrRecordNotFound
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

// GetByID retrieves a record scoped by merchant. A record owned by another
// merchant is reported as not found.
func (s *Store) GetByID(_ context.Context, merchantID string, id uuid.UUID) (*record.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists || rec.MerchantID != merchantID {
		return nil, domainErrors.ErrRecordNotFound
	}
	out := clone(&rec)
	return &out, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// clone copies a record so callers cannot mutate stored state through
// shared pointers.
func clone(rec *record.PaymentRecord) record.PaymentRecord {
	out := *rec
	if rec.BankPaymentID != nil {
		v := *rec.BankPaymentID
		out.BankPaymentID = &v
	}
	if rec.FailureReason != nil {
		v := *rec.FailureReason
		out.FailureReason = &v
	}
	return out
}
