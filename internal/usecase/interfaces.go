package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByAddress matches addresses case-insensitively.
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)
	// GetByIDsForUpdate locks the rows in ascending id order.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// UpdateBalance fails with domain.ErrAccountNotFound if the row is gone.
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	ListByWallet(ctx context.Context, walletID string) ([]*domain.Account, error)
}

// TransactionRepository defines data access for the transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, record *domain.TransactionRecord) (string, error)
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error)
}

// NotificationPreferencesRepository defines data access for notification settings.
type NotificationPreferencesRepository interface {
	GetByWalletID(ctx context.Context, walletID string) (*domain.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs *domain.NotificationPreferences) error
}

// ApprovalStore holds pending approvals until they are consumed or expire.
type ApprovalStore interface {
	Create(ctx context.Context, draft domain.ApprovalDraft, ttl time.Duration) (*domain.PendingApproval, error)
	// Get returns the approval without consuming it.
	Get(ctx context.Context, id string) (*domain.PendingApproval, error)
	// Consume atomically removes and returns a live approval.
	// A second call with the same id fails with domain.ErrApprovalNotFound.
	Consume(ctx context.Context, id string) (*domain.PendingApproval, error)
	SweepExpired(ctx context.Context) (int, error)
}

// SignatureVerifier checks a personal_sign signature against an address.
type SignatureVerifier interface {
	Verify(message, signature, address string) bool
}

// PriceOracle converts USD amounts to ETH.
// Errors wrap domain.ErrUpstreamTimeout or domain.ErrUpstreamFailure.
type PriceOracle interface {
	QuoteEthForUsd(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error)
}

// Notifier delivers a text message to a phone number.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient datastore conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
