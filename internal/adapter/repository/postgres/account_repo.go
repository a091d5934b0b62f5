package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

const accountColumns = `id, wallet_id, address, label, account_index, balance, created_at, updated_at`

const getAccountByID = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

const getAccountByAddress = `SELECT ` + accountColumns + ` FROM accounts WHERE address = lower($1)`

const getAccountsByIDsForUpdate = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1::text[]) ORDER BY id FOR UPDATE`

const updateAccountBalance = `UPDATE accounts SET balance = $2, updated_at = $3 WHERE id = $1`

const insertAccount = `INSERT INTO accounts (` + accountColumns + `)
VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

const listAccountsByWallet = `SELECT ` + accountColumns + ` FROM accounts WHERE wallet_id = $1 ORDER BY account_index, id`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Insert creates an account unless one with the same ID exists.
func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, insertAccount,
		account.ID,
		account.WalletID,
		account.Address,
		account.Label,
		account.Index,
		decimalToNumeric(account.Balance),
		account.CreatedAt,
		account.UpdatedAt,
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, getAccountByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByAddress retrieves an account by its address, ignoring case.
func (r *AccountRepository) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, getAccountByAddress, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByIDsForUpdate retrieves multiple accounts by IDs with FOR UPDATE locks.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	db, err := txDB(tx)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, getAccountsByIDsForUpdate, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, len(ids))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// UpdateBalance updates the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	db, err := txDB(tx)
	if err != nil {
		return err
	}

	tag, err := db.Exec(ctx, updateAccountBalance, id, decimalToNumeric(balance), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// ListByWallet lists the accounts of a wallet in derivation order.
func (r *AccountRepository) ListByWallet(ctx context.Context, walletID string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, listAccountsByWallet, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		label   pgtype.Text
		balance pgtype.Numeric
	)

	err := row.Scan(&a.ID, &a.WalletID, &a.Address, &label, &a.Index, &balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Label = label.String
	a.Balance = numericToDecimal(balance)

	return &a, nil
}
