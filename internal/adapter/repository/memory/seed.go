package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

// ParseSeedAccounts parses "wallet:address:balance[:label]" entries.
// Account ids are "<wallet>-<index>" with the index counted per wallet.
func ParseSeedAccounts(entries []string) ([]*domain.Account, error) {
	now := time.Now().UTC()
	indexes := make(map[string]int)

	var accounts []*domain.Account
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("seed account %q: expected wallet:address:balance[:label]", entry)
		}

		walletID, address := parts[0], parts[1]
		if err := domain.ValidateAddress(address); err != nil {
			return nil, fmt.Errorf("seed account %q: %w", entry, err)
		}

		balance, err := decimal.NewFromString(parts[2])
		if err != nil || balance.IsNegative() {
			return nil, fmt.Errorf("seed account %q: invalid balance", entry)
		}

		index := indexes[walletID]
		indexes[walletID] = index + 1

		label := fmt.Sprintf("Account %d", index+1)
		if len(parts) == 4 && parts[3] != "" {
			label = parts[3]
		}

		accounts = append(accounts, &domain.Account{
			ID:        fmt.Sprintf("%s-%d", walletID, index),
			WalletID:  walletID,
			Address:   address,
			Label:     label,
			Index:     index,
			Balance:   balance,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return accounts, nil
}
