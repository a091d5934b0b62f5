package oracle

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
)

// StaticOracle quotes at a fixed ETH-per-USD rate.
type StaticOracle struct {
	mu   sync.RWMutex
	rate decimal.Decimal
}

// NewStaticOracle creates a StaticOracle for rate ETH per USD.
func NewStaticOracle(rate decimal.Decimal) *StaticOracle {
	return &StaticOracle{rate: rate}
}

// SetRate changes the rate used by later quotes.
func (o *StaticOracle) SetRate(rate decimal.Decimal) {
	o.mu.Lock()
	o.rate = rate
	o.mu.Unlock()
}

// QuoteEthForUsd converts usd at the fixed rate, truncated to wei precision.
func (o *StaticOracle) QuoteEthForUsd(_ context.Context, usd decimal.Decimal) (*domain.Quote, error) {
	if !usd.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	o.mu.RLock()
	rate := o.rate
	o.mu.RUnlock()

	return &domain.Quote{
		UsdAmount: usd,
		EthAmount: usd.Mul(rate).Truncate(weiDecimals),
		Rate:      rate,
	}, nil
}
