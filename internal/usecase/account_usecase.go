package usecase

import (
	"context"

	"github.com/codit04/cypherd/internal/domain"
)

// AccountUseCase handles read access to wallet accounts.
type AccountUseCase struct {
	accountRepo AccountRepository
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
	}
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// GetAccountByAddress retrieves an account by address.
func (uc *AccountUseCase) GetAccountByAddress(ctx context.Context, address string) (*domain.Account, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByAddress(ctx, address)
}

// ListWalletAccounts lists the accounts of a wallet in derivation order.
func (uc *AccountUseCase) ListWalletAccounts(ctx context.Context, walletID string) ([]*domain.Account, error) {
	return uc.accountRepo.ListByWallet(ctx, walletID)
}
