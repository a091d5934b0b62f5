// Package memory provides in-process implementations of the ledger ports.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

var errForeignTx = errors.New("transaction does not belong to the memory ledger")

// Ledger stores accounts, transactions and notification preferences in memory.
//
// Balance writes go through a unit of work: GetByIDsForUpdate takes per-account
// locks in sorted id order, writes are staged on the Tx and applied on Commit.
type Ledger struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions []*domain.TransactionRecord
	preferences  map[string]*domain.NotificationPreferences

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:    make(map[string]*domain.Account),
		preferences: make(map[string]*domain.NotificationPreferences),
		locks:       make(map[string]*sync.Mutex),
	}
}

// AddAccount inserts or replaces an account.
func (l *Ledger) AddAccount(account *domain.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *account
	l.accounts[account.ID] = &c
}

// DeleteAccount removes an account.
func (l *Ledger) DeleteAccount(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, id)
}

func (l *Ledger) accountLock(id string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Begin starts a unit of work.
func (l *Ledger) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &Tx{ledger: l, balances: make(map[string]decimal.Decimal)}, nil
}

// Tx is a memory unit of work. It is not safe for concurrent use.
type Tx struct {
	ledger   *Ledger
	held     []*sync.Mutex
	balances map[string]decimal.Decimal
	updated  time.Time
	records  []*domain.TransactionRecord
	done     bool
}

// Commit applies staged writes and releases locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	defer t.release()

	l := t.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	for id := range t.balances {
		if _, ok := l.accounts[id]; !ok {
			return domain.ErrAccountNotFound
		}
	}
	for id, balance := range t.balances {
		acc := l.accounts[id]
		acc.Balance = balance
		acc.UpdatedAt = t.updated
	}
	l.transactions = append(l.transactions, t.records...)

	return nil
}

// Rollback discards staged writes and releases locks. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *Tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok || mtx.done {
		return nil, errForeignTx
	}
	return mtx, nil
}

// GetByID retrieves an account by ID.
func (l *Ledger) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *acc
	return &c, nil
}

// GetByAddress retrieves an account by address, ignoring case.
func (l *Ledger) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, acc := range l.accounts {
		if strings.EqualFold(acc.Address, address) {
			c := *acc
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// GetByIDsForUpdate locks the accounts in sorted id order for the lifetime of tx.
func (l *Ledger) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		m := l.accountLock(id)
		m.Lock()
		mtx.held = append(mtx.held, m)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		acc, ok := l.accounts[id]
		if !ok {
			continue
		}
		c := *acc
		if staged, ok := mtx.balances[id]; ok {
			c.Balance = staged
		}
		accounts = append(accounts, &c)
	}
	return accounts, nil
}

// UpdateBalance stages a balance write on tx.
func (l *Ledger) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	l.mu.RLock()
	_, ok := l.accounts[id]
	l.mu.RUnlock()
	if !ok {
		return domain.ErrAccountNotFound
	}

	mtx.balances[id] = balance
	mtx.updated = updatedAt
	return nil
}

// ListByWallet lists the accounts of a wallet ordered by index.
func (l *Ledger) ListByWallet(ctx context.Context, walletID string) ([]*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var accounts []*domain.Account
	for _, acc := range l.accounts {
		if acc.WalletID == walletID {
			c := *acc
			accounts = append(accounts, &c)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Index < accounts[j].Index })
	return accounts, nil
}

// TotalBalance sums every account balance.
func (l *Ledger) TotalBalance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, acc := range l.accounts {
		total = total.Add(acc.Balance)
	}
	return total
}
