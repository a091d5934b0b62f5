package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a wallet account holding an ETH balance.
type Account struct {
	ID        string
	WalletID  string
	Address   string
	Label     string
	Index     int
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Balance) {
		return &InsufficientBalanceError{
			AccountID: a.ID,
			Available: a.Balance,
			Required:  amount,
		}
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// SameWallet reports whether both accounts belong to one wallet.
func (a *Account) SameWallet(other *Account) bool {
	return other != nil && a.WalletID != "" && a.WalletID == other.WalletID
}
