package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string          `json:"id"`
	WalletID  string          `json:"wallet_id"`
	Address   string          `json:"address"`
	Label     string          `json:"label,omitempty"`
	Index     int             `json:"index"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		WalletID:  a.WalletID,
		Address:   a.Address,
		Label:     a.Label,
		Index:     a.Index,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps the accounts of a wallet.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// ApprovalResponse is returned when an approval is created or fetched.
// Message is the exact text the sender has to sign.
type ApprovalResponse struct {
	ApprovalID       string           `json:"approval_id"`
	Message          string           `json:"message"`
	FromAccountID    string           `json:"from_account_id"`
	FromAddress      string           `json:"from_address"`
	ToAddress        string           `json:"to_address"`
	AmountEth        decimal.Decimal  `json:"amount_eth"`
	AmountUsd        *decimal.Decimal `json:"amount_usd,omitempty"`
	OriginalQuoteEth *decimal.Decimal `json:"original_quote_eth,omitempty"`
	Memo             string           `json:"memo,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
}

// ApprovalFromDomain converts a pending approval to response.
func ApprovalFromDomain(a *domain.PendingApproval) *ApprovalResponse {
	return &ApprovalResponse{
		ApprovalID:       a.ID,
		Message:          a.Message,
		FromAccountID:    a.SenderAccountID,
		FromAddress:      a.SenderAddress,
		ToAddress:        a.RecipientAddress,
		AmountEth:        a.AmountEth,
		AmountUsd:        a.AmountUsd,
		OriginalQuoteEth: a.OriginalQuoteEth,
		Memo:             a.Memo,
		CreatedAt:        a.CreatedAt,
		ExpiresAt:        a.ExpiresAt,
	}
}

// TransactionResponse represents a transaction record in API responses.
type TransactionResponse struct {
	ID            string          `json:"id"`
	ApprovalID    string          `json:"approval_id"`
	FromAccountID *string         `json:"from_account_id"`
	ToAccountID   *string         `json:"to_account_id"`
	FromAddress   string          `json:"from_address"`
	ToAddress     string          `json:"to_address"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo,omitempty"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionFromDomain converts a transaction record to response.
func TransactionFromDomain(t *domain.TransactionRecord) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		ApprovalID:    t.ApprovalID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		FromAddress:   t.FromAddress,
		ToAddress:     t.ToAddress,
		Amount:        t.Amount,
		Memo:          t.Memo,
		Type:          string(t.Type),
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
	}
}

// TransactionsFromDomain converts transaction records to responses.
func TransactionsFromDomain(records []*domain.TransactionRecord) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, t := range records {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// NotificationPreferencesResponse represents a wallet's notification settings.
type NotificationPreferencesResponse struct {
	WalletID       string    `json:"wallet_id"`
	PhoneNumber    string    `json:"phone_number"`
	Enabled        bool      `json:"enabled"`
	NotifyIncoming bool      `json:"notify_incoming"`
	NotifyOutgoing bool      `json:"notify_outgoing"`
	NotifySecurity bool      `json:"notify_security"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NotificationPreferencesFromDomain converts preferences to response.
func NotificationPreferencesFromDomain(p *domain.NotificationPreferences) *NotificationPreferencesResponse {
	return &NotificationPreferencesResponse{
		WalletID:       p.WalletID,
		PhoneNumber:    p.PhoneNumber,
		Enabled:        p.Enabled,
		NotifyIncoming: p.NotifyIncoming,
		NotifyOutgoing: p.NotifyOutgoing,
		NotifySecurity: p.NotifySecurity,
		UpdatedAt:      p.UpdatedAt,
	}
}

// SweepResponse reports how many expired approvals were removed.
type SweepResponse struct {
	Removed int `json:"removed"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
