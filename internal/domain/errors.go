package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Approval errors
	ErrApprovalNotFound = errors.New("approval not found")
	ErrApprovalExpired  = errors.New("approval expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrPriceDrift       = errors.New("price moved beyond tolerance")

	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Transfer errors
	ErrSelfTransfer        = errors.New("cannot transfer to the sending account")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAmountDenomination  = errors.New("exactly one of amount_eth or amount_usd is required")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Upstream and storage errors
	ErrUpstreamTimeout    = errors.New("price oracle timed out")
	ErrUpstreamFailure    = errors.New("price oracle failed")
	ErrPersistenceFailure = errors.New("ledger write failed")

	// Notification errors
	ErrPreferencesNotFound = errors.New("notification preferences not found")
	ErrInvalidPhoneNumber  = errors.New("invalid phone number")
)

// InsufficientBalanceError carries the balances involved in a rejected debit.
type InsufficientBalanceError struct {
	AccountID string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, required %s", e.Available, e.Required)
}

// Is lets errors.Is match ErrInsufficientBalance.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// PriceDriftError carries the quotes compared by the price guard.
type PriceDriftError struct {
	Original         decimal.Decimal
	Current          decimal.Decimal
	DeltaPercent     decimal.Decimal
	TolerancePercent decimal.Decimal
}

func (e *PriceDriftError) Error() string {
	return fmt.Sprintf("price moved %s%% (tolerance %s%%): original %s ETH, current %s ETH",
		e.DeltaPercent.StringFixed(4), e.TolerancePercent, e.Original, e.Current)
}

// Is lets errors.Is match ErrPriceDrift.
func (e *PriceDriftError) Is(target error) bool {
	return target == ErrPriceDrift
}
