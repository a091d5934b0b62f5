package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeSend     TransactionType = "send"
	TransactionTypeReceive  TransactionType = "receive"
	TransactionTypeInternal TransactionType = "internal"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// TransactionRecord is the immutable log entry of an executed approval.
// FromAccountID and ToAccountID are nil when the address is not a known account.
type TransactionRecord struct {
	ID            string
	ApprovalID    string
	FromAccountID *string
	ToAccountID   *string
	FromAddress   string
	ToAddress     string
	Amount        decimal.Decimal
	Memo          string
	Type          TransactionType
	Status        TransactionStatus
	CreatedAt     time.Time
}

// Quote is a USD to ETH conversion returned by the price oracle.
type Quote struct {
	UsdAmount decimal.Decimal
	EthAmount decimal.Decimal
	// Rate is ETH per USD.
	Rate decimal.Decimal
}
