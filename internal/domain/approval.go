package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultApprovalTTL is how long an approval can be executed after creation.
const DefaultApprovalTTL = 30 * time.Second

// ApprovalDraft is the validated input from which a PendingApproval is minted.
type ApprovalDraft struct {
	SenderAccountID  string
	SenderAddress    string
	RecipientAddress string
	AmountEth        decimal.Decimal
	AmountUsd        *decimal.Decimal
	OriginalQuoteEth *decimal.Decimal
	Memo             string
}

// PendingApproval is a single-use, expiring authorization for one transfer.
type PendingApproval struct {
	ID               string
	Message          string
	SenderAccountID  string
	SenderAddress    string
	RecipientAddress string
	AmountEth        decimal.Decimal
	AmountUsd        *decimal.Decimal
	OriginalQuoteEth *decimal.Decimal
	Memo             string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// NewPendingApproval mints an approval expiring ttl after now.
func NewPendingApproval(id string, draft ApprovalDraft, now time.Time, ttl time.Duration) *PendingApproval {
	a := &PendingApproval{
		ID:               id,
		SenderAccountID:  draft.SenderAccountID,
		SenderAddress:    NormalizeAddress(draft.SenderAddress),
		RecipientAddress: NormalizeAddress(draft.RecipientAddress),
		AmountEth:        draft.AmountEth,
		AmountUsd:        draft.AmountUsd,
		OriginalQuoteEth: draft.OriginalQuoteEth,
		Memo:             draft.Memo,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
	a.Message = a.CanonicalMessage()
	return a
}

// IsUSD reports whether the transfer was requested in USD.
func (a *PendingApproval) IsUSD() bool {
	return a.AmountUsd != nil
}

// IsExpiredAt reports whether the approval is no longer valid at now.
// The expiry instant itself is still valid.
func (a *PendingApproval) IsExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// CanonicalMessage renders the exact text the sender must sign.
//
// Amounts use decimal.String, which never emits exponents or trailing zeros,
// and addresses are lower-case, so the same approval always renders the same bytes.
func (a *PendingApproval) CanonicalMessage() string {
	var b strings.Builder
	b.WriteString("Transfer ")
	b.WriteString(a.AmountEth.String())
	b.WriteString(" ETH")
	if a.AmountUsd != nil {
		b.WriteString(" ($")
		b.WriteString(a.AmountUsd.String())
		b.WriteString(" USD)")
	}
	b.WriteString(" to ")
	b.WriteString(a.RecipientAddress)
	b.WriteString(" from ")
	b.WriteString(a.SenderAddress)
	if a.Memo != "" {
		b.WriteString("\nMemo: ")
		b.WriteString(a.Memo)
	}
	b.WriteString("\nApproval: ")
	b.WriteString(a.ID)
	return b.String()
}
