package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cassiomorais/gateway/internal/bank"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/record"
	"github.com/google/uuid"
)

// --- Record Repository Mock ---

// MockRecordRepository is a mock implementation of record.Repository.
type MockRecordRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*record.PaymentRecord

	AddFunc     func(ctx context.Context, r *record.PaymentRecord) error
	UpdateFunc  func(ctx context.Context, r *record.PaymentRecord) error
	GetByIDFunc func(ctx context.Context, merchantID string, id uuid.UUID) (*record.PaymentRecord, error)
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		records: make(map[uuid.UUID]*record.PaymentRecord),
	}
}

func (m *MockRecordRepository) Add(ctx context.Context, r *record.PaymentRecord) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; exists {
		return domainErrors.ErrDuplicateRecordID
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *MockRecordRepository) Update(ctx context.Context, r *record.PaymentRecord) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.records[r.ID]
	if !exists || existing.MerchantID != r.MerchantID {
		return domainErrors.ErrRecordNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *MockRecordRepository) GetByID(ctx context.Context, merchantID string, id uuid.UUID) (*record.PaymentRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, merchantID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, exists := m.records[id]
	if !exists || rec.MerchantID != merchantID {
		return nil, domainErrors.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

// Stored returns the stored record (test helper, skips merchant scoping).
func (m *MockRecordRepository) Stored(id uuid.UUID) *record.PaymentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// --- Attempt Logger Mock ---

// MockAttemptLogger is a mock implementation of record.AttemptLogger.
type MockAttemptLogger struct {
	mu       sync.Mutex
	attempts []*record.PaymentAttempt

	AppendFunc func(ctx context.Context, a *record.PaymentAttempt) error
}

func NewMockAttemptLogger() *MockAttemptLogger {
	return &MockAttemptLogger{}
}

func (m *MockAttemptLogger) Append(ctx context.Context, a *record.PaymentAttempt) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

// Attempts returns the appended attempts.
func (m *MockAttemptLogger) Attempts() []*record.PaymentAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*record.PaymentAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// --- Bank Client Mock ---

// MockBankClient is a mock implementation of the acquiring bank port.
// The default outcome is Successful with a fresh transaction id.
type MockBankClient struct {
	mu    sync.Mutex
	calls []bank.TransferRequest

	TransferFundsFunc func(ctx context.Context, req bank.TransferRequest) bank.Outcome
}

func NewMockBankClient() *MockBankClient {
	return &MockBankClient{}
}

func (m *MockBankClient) TransferFunds(ctx context.Context, req bank.TransferRequest) bank.Outcome {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.TransferFundsFunc != nil {
		return m.TransferFundsFunc(ctx, req)
	}
	return bank.Successful{TransactionID: uuid.New().String()}
}

// Calls returns the transfer requests received so far.
func (m *MockBankClient) Calls() []bank.TransferRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bank.TransferRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// --- Codec Mock ---

// MockCodec is a reversible fake codec. It prefixes plaintext with "enc:"
// so tests can assert on stored ciphertext without real crypto.
type MockCodec struct {
	EncryptFunc func(plaintext string, key []byte) (string, error)
	DecryptFunc func(ciphertext string, key []byte) (string, error)
}

func NewMockCodec() *MockCodec {
	return &MockCodec{}
}

func (m *MockCodec) Encrypt(plaintext string, key []byte) (string, error) {
	if m.EncryptFunc != nil {
		return m.EncryptFunc(plaintext, key)
	}
	return "enc:" + plaintext, nil
}

func (m *MockCodec) Decrypt(ciphertext string, key []byte) (string, error) {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ciphertext, key)
	}
	plain, ok := strings.CutPrefix(ciphertext, "enc:")
	if !ok {
		return "", domainErrors.ErrDecryptionFailed
	}
	return plain, nil
}

// --- Key Resolver Mock ---

// MockKeyResolver is a mock implementation of crypto.KeyResolver. By default
// every merchant resolves to the same test key.
type MockKeyResolver struct {
	KeyFunc func(merchantID string) ([]byte, error)
}

func NewMockKeyResolver() *MockKeyResolver {
	return &MockKeyResolver{}
}

func (m *MockKeyResolver) Key(merchantID string) ([]byte, error) {
	if m.KeyFunc != nil {
		return m.KeyFunc(merchantID)
	}
	return TestMerchantKey(), nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Event Publisher Mock ---

// PublishedEvent captures one call to the event publisher.
type PublishedEvent struct {
	PaymentID string
	Payload   string
}

// MockPublisher is a mock implementation of the stream publisher port.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishPaymentCreatedFunc func(ctx context.Context, paymentID, payload string) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishPaymentCreated(ctx context.Context, paymentID, payload string) error {
	if m.PublishPaymentCreatedFunc != nil {
		return m.PublishPaymentCreatedFunc(ctx, paymentID, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{PaymentID: paymentID, Payload: payload})
	return nil
}

// Events returns the published events.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// --- Cache Mock ---

// MockCache is an in-memory implementation of the idempotency cache port.
type MockCache struct {
	mu     sync.Mutex
	values map[string]string

	SetIfAbsentFunc func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	DeleteFunc      func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string]string)}
}

func (m *MockCache) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.SetIfAbsentFunc != nil {
		return m.SetIfAbsentFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *MockCache) Contains(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.values[key]
	return exists, nil
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
