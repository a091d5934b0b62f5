package memory

import (
	"context"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

// TransactionRepository exposes the Ledger transaction log as usecase.TransactionRepository.
type TransactionRepository struct {
	ledger *Ledger
}

// NewTransactionRepository creates a TransactionRepository backed by ledger.
func NewTransactionRepository(ledger *Ledger) *TransactionRepository {
	return &TransactionRepository{ledger: ledger}
}

// Append stages a record on tx; it becomes visible on Commit.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) (string, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return "", err
	}
	c := *record
	mtx.records = append(mtx.records, &c)
	return record.ID, nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	r.ledger.mu.RLock()
	defer r.ledger.mu.RUnlock()

	for _, rec := range r.ledger.transactions {
		if rec.ID == id {
			c := *rec
			return &c, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

// ListByAccount lists the newest transactions touching an account.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error) {
	r.ledger.mu.RLock()
	defer r.ledger.mu.RUnlock()

	var out []*domain.TransactionRecord
	for i := len(r.ledger.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.ledger.transactions[i]
		if matches(rec.FromAccountID, accountID) || matches(rec.ToAccountID, accountID) {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}

func matches(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// PreferencesRepository exposes notification preferences as usecase.NotificationPreferencesRepository.
type PreferencesRepository struct {
	ledger *Ledger
}

// NewPreferencesRepository creates a PreferencesRepository backed by ledger.
func NewPreferencesRepository(ledger *Ledger) *PreferencesRepository {
	return &PreferencesRepository{ledger: ledger}
}

// GetByWalletID retrieves the preferences of a wallet.
func (r *PreferencesRepository) GetByWalletID(ctx context.Context, walletID string) (*domain.NotificationPreferences, error) {
	r.ledger.mu.RLock()
	defer r.ledger.mu.RUnlock()

	p, ok := r.ledger.preferences[walletID]
	if !ok {
		return nil, domain.ErrPreferencesNotFound
	}
	c := *p
	return &c, nil
}

// Upsert stores the preferences of a wallet.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	c := *prefs
	r.ledger.preferences[prefs.WalletID] = &c
	return nil
}
