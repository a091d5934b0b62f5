package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultQuoteTimeout bounds a single price oracle call.
	DefaultQuoteTimeout = 10 * time.Second

	// DefaultNotifyTimeout bounds post-commit notification and event delivery.
	DefaultNotifyTimeout = 15 * time.Second

	// DefaultTolerancePercent is the accepted USD price drift between creation and execution.
	DefaultTolerancePercent = "1"

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
