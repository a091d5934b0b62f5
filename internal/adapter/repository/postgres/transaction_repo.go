package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/usecase"
)

const transactionColumns = `id, approval_id, from_account_id, to_account_id, from_address, to_address, amount, memo, type, status, created_at`

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

const getTransactionByID = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

const listTransactionsByAccount = `SELECT ` + transactionColumns + ` FROM transactions
WHERE from_account_id = $1 OR to_account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts a record within a transaction and returns its ID.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) (string, error) {
	db, err := txDB(tx)
	if err != nil {
		return "", err
	}

	var id string
	err = db.QueryRow(ctx, insertTransaction,
		record.ID,
		record.ApprovalID,
		ptrText(record.FromAccountID),
		ptrText(record.ToAccountID),
		record.FromAddress,
		record.ToAddress,
		decimalToNumeric(record.Amount),
		record.Memo,
		string(record.Type),
		string(record.Status),
		record.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	record, err := scanTransaction(r.db.QueryRow(ctx, getTransactionByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return record, nil
}

// ListByAccount lists the newest transactions touching an account.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.TransactionRecord, error) {
	rows, err := r.db.Query(ctx, listTransactionsByAccount, accountID, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*domain.TransactionRecord, 0, limit)
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		rec          domain.TransactionRecord
		from, to     pgtype.Text
		memo         pgtype.Text
		amount       pgtype.Numeric
		txType, stat string
	)

	err := row.Scan(&rec.ID, &rec.ApprovalID, &from, &to, &rec.FromAddress, &rec.ToAddress,
		&amount, &memo, &txType, &stat, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.FromAccountID = textPtr(from)
	rec.ToAccountID = textPtr(to)
	rec.Amount = numericToDecimal(amount)
	rec.Memo = memo.String
	rec.Type = domain.TransactionType(txType)
	rec.Status = domain.TransactionStatus(stat)

	return &rec, nil
}
