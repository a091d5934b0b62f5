package usecase

import (
	"context"

	"github.com/codit04/cypherd/internal/domain"
)

// TransactionUseCase handles read access to the transaction log.
type TransactionUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository) *TransactionUseCase {
	return &TransactionUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListAccountTransactions lists the newest transactions of an account.
// limit defaults to 50 and is capped at 200.
func (uc *TransactionUseCase) ListAccountTransactions(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.transactionRepo.ListByAccount(ctx, accountID, domain.ValidatePagination(limit))
}
