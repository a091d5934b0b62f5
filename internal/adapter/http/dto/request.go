package dto

import (
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/usecase"
)

// CreateApprovalRequest represents a request for a transfer approval.
// Exactly one of AmountEth and AmountUsd must be set.
type CreateApprovalRequest struct {
	FromAccountID string           `json:"from_account_id"`
	ToAddress     string           `json:"to_address"`
	AmountEth     *decimal.Decimal `json:"amount_eth,omitempty"`
	AmountUsd     *decimal.Decimal `json:"amount_usd,omitempty"`
	Memo          string           `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateApprovalRequest) ToUseCaseInput() usecase.CreateApprovalInput {
	return usecase.CreateApprovalInput{
		FromAccountID: r.FromAccountID,
		ToAddress:     r.ToAddress,
		AmountEth:     r.AmountEth,
		AmountUsd:     r.AmountUsd,
		Memo:          r.Memo,
	}
}

// ExecuteApprovalRequest carries the sender's signature over the approval message.
type ExecuteApprovalRequest struct {
	Signature string `json:"signature"`
}

// ToUseCaseInput converts to use case input.
func (r *ExecuteApprovalRequest) ToUseCaseInput(approvalID string) usecase.ExecuteApprovalInput {
	return usecase.ExecuteApprovalInput{
		ApprovalID: approvalID,
		Signature:  r.Signature,
	}
}

// UpdateNotificationPreferencesRequest replaces a wallet's notification settings.
type UpdateNotificationPreferencesRequest struct {
	PhoneNumber    string `json:"phone_number"`
	Enabled        bool   `json:"enabled"`
	NotifyIncoming bool   `json:"notify_incoming"`
	NotifyOutgoing bool   `json:"notify_outgoing"`
	NotifySecurity bool   `json:"notify_security"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateNotificationPreferencesRequest) ToUseCaseInput(walletID string) usecase.UpdatePreferencesInput {
	return usecase.UpdatePreferencesInput{
		WalletID:       walletID,
		PhoneNumber:    r.PhoneNumber,
		Enabled:        r.Enabled,
		NotifyIncoming: r.NotifyIncoming,
		NotifyOutgoing: r.NotifyOutgoing,
		NotifySecurity: r.NotifySecurity,
	}
}

// TestNotificationRequest asks for a test message to a phone number.
type TestNotificationRequest struct {
	PhoneNumber string `json:"phone_number"`
}
