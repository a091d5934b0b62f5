package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidMemo    = errors.New("invalid memo")
	ErrMemoTooLong    = errors.New("memo too long")
)

// Validation constants
const (
	MaxMemoLength = 256
	EthDecimals   = 18
	UsdDecimals   = 6 // USDC units
	MaxPageSize   = 200
	DefaultPage   = 50
)

var (
	addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	phoneRegex   = regexp.MustCompile(`^\+\d{1,3}\d{4,15}$`)
)

// ValidateAddress validates a 0x-prefixed 20 byte hex address.
func ValidateAddress(address string) error {
	if !addressRegex.MatchString(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}

// NormalizeAddress returns the lower-case form used for comparisons and messages.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidateAmount validates a transfer amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateEthAmount validates an ETH amount and its wei precision.
func ValidateEthAmount(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !amount.Equal(amount.Truncate(EthDecimals)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, EthDecimals)
	}
	return nil
}

// ValidateUsdAmount validates a USD amount and its USDC precision.
func ValidateUsdAmount(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if !amount.Equal(amount.Truncate(UsdDecimals)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, UsdDecimals)
	}
	return nil
}

// ValidateMemo validates memo length and content.
// Control characters are rejected so the memo cannot forge extra lines in a signed message.
func ValidateMemo(memo string) error {
	if !utf8.ValidString(memo) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidMemo)
	}
	if utf8.RuneCountInString(memo) > MaxMemoLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrMemoTooLong, MaxMemoLength)
	}
	for _, r := range memo {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidMemo)
		}
	}
	return nil
}

// ValidatePhoneNumber validates an E.164-like phone number.
func ValidatePhoneNumber(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, phone)
	}
	return nil
}

// ValidatePagination clamps a list limit.
func ValidatePagination(limit int) int {
	if limit <= 0 {
		return DefaultPage
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
