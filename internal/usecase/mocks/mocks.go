package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByAddressFunc      func(ctx context.Context, address string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalanceFunc     func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	ListByWalletFunc      func(ctx context.Context, walletID string) ([]*domain.Account, error)
}

func NewMockAccountRepository(accounts ...*domain.Account) *MockAccountRepository {
	m := &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		c := *acc
		return &c, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, address)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.Address == domain.NormalizeAddress(address) {
			c := *acc
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	var result []*domain.Account
	for _, id := range ids {
		if acc, err := m.GetByID(ctx, id); err == nil {
			result = append(result, acc)
		}
	}
	return result, nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.Balance = balance
	acc.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) ListByWallet(ctx context.Context, walletID string) ([]*domain.Account, error) {
	if m.ListByWalletFunc != nil {
		return m.ListByWalletFunc(ctx, walletID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Account
	for _, acc := range m.accounts {
		if acc.WalletID == walletID {
			c := *acc
			result = append(result, &c)
		}
	}
	return result, nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.TransactionRecord

	AppendFunc        func(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) (string, error)
	GetByIDFunc       func(ctx context.Context, id string) (*domain.TransactionRecord, error)
	ListByAccountFunc func(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		records: make(map[string]*domain.TransactionRecord),
	}
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) (string, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return record.ID, nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.records[id]; ok {
		return rec, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.TransactionRecord
	for _, rec := range m.records {
		if len(result) >= limit {
			break
		}
		if (rec.FromAccountID != nil && *rec.FromAccountID == accountID) ||
			(rec.ToAccountID != nil && *rec.ToAccountID == accountID) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// MockPreferencesRepository is a mock implementation of NotificationPreferencesRepository.
type MockPreferencesRepository struct {
	mu    sync.RWMutex
	prefs map[string]*domain.NotificationPreferences

	GetByWalletIDFunc func(ctx context.Context, walletID string) (*domain.NotificationPreferences, error)
	UpsertFunc        func(ctx context.Context, prefs *domain.NotificationPreferences) error
}

func NewMockPreferencesRepository(prefs ...*domain.NotificationPreferences) *MockPreferencesRepository {
	m := &MockPreferencesRepository{
		prefs: make(map[string]*domain.NotificationPreferences),
	}
	for _, p := range prefs {
		m.prefs[p.WalletID] = p
	}
	return m
}

func (m *MockPreferencesRepository) GetByWalletID(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
	if m.GetByWalletIDFunc != nil {
		return m.GetByWalletIDFunc(ctx, walletID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.prefs[walletID]; ok {
		return p, nil
	}
	return nil, domain.ErrPreferencesNotFound
}

func (m *MockPreferencesRepository) Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, prefs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[prefs.WalletID] = prefs
	return nil
}

// MockApprovalStore is a mock implementation of ApprovalStore.
type MockApprovalStore struct {
	CreateFunc       func(ctx context.Context, draft domain.ApprovalDraft, ttl time.Duration) (*domain.PendingApproval, error)
	GetFunc          func(ctx context.Context, id string) (*domain.PendingApproval, error)
	ConsumeFunc      func(ctx context.Context, id string) (*domain.PendingApproval, error)
	SweepExpiredFunc func(ctx context.Context) (int, error)
}

func (m *MockApprovalStore) Create(ctx context.Context, draft domain.ApprovalDraft, ttl time.Duration) (*domain.PendingApproval, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, draft, ttl)
	}
	return domain.NewPendingApproval("mock-approval", draft, time.Now().UTC(), ttl), nil
}

func (m *MockApprovalStore) Get(ctx context.Context, id string) (*domain.PendingApproval, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrApprovalNotFound
}

func (m *MockApprovalStore) Consume(ctx context.Context, id string) (*domain.PendingApproval, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, id)
	}
	return nil, domain.ErrApprovalNotFound
}

func (m *MockApprovalStore) SweepExpired(ctx context.Context) (int, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx)
	}
	return 0, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockRetrier runs the operation once.
type MockRetrier struct {
	Calls int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	m.Calls++
	return operation()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether key is stored.
func (m *MockIdempotencyStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}
