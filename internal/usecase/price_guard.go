package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceGuard bounds the drift between the quote captured at approval
// time and the quote fetched at execution time.
type PriceGuard struct {
	tolerancePercent decimal.Decimal
}

// NewPriceGuard creates a PriceGuard. A non-positive tolerance falls back to 1%.
func NewPriceGuard(tolerancePercent decimal.Decimal) *PriceGuard {
	if tolerancePercent.LessThanOrEqual(decimal.Zero) {
		tolerancePercent = decimal.RequireFromString(DefaultTolerancePercent)
	}
	return &PriceGuard{tolerancePercent: tolerancePercent}
}

// TolerancePercent returns the configured tolerance.
func (g *PriceGuard) TolerancePercent() decimal.Decimal {
	return g.tolerancePercent
}

// Check returns a *domain.PriceDriftError when current is outside tolerance.
func (g *PriceGuard) Check(original, current decimal.Decimal) error {
	if WithinTolerance(original, current, g.tolerancePercent) {
		return nil
	}
	return &domain.PriceDriftError{
		Original:         original,
		Current:          current,
		DeltaPercent:     DriftPercent(original, current),
		TolerancePercent: g.tolerancePercent,
	}
}

// WithinTolerance reports whether |current-original|/original*100 <= tolerancePercent.
// A zero original only accepts a zero current.
func WithinTolerance(original, current, tolerancePercent decimal.Decimal) bool {
	if original.IsZero() {
		return current.IsZero()
	}
	return DriftPercent(original, current).LessThanOrEqual(tolerancePercent)
}

// DriftPercent returns the absolute change from original to current in percent.
// A zero original reports 0 when current is also zero and 100 otherwise.
func DriftPercent(original, current decimal.Decimal) decimal.Decimal {
	if original.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(original).Abs().Div(original.Abs()).Mul(hundred)
}
