package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codit04/cypherd/internal/domain"
	"github.com/codit04/cypherd/internal/infrastructure/metrics"
	"github.com/codit04/cypherd/internal/usecase"
)

// Instrumented records request outcomes and latency of the wrapped oracle.
type Instrumented struct {
	next    usecase.PriceOracle
	metrics *metrics.Metrics
}

// NewInstrumented wraps next with prometheus metrics.
func NewInstrumented(next usecase.PriceOracle, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

// QuoteEthForUsd delegates to the wrapped oracle.
func (o *Instrumented) QuoteEthForUsd(ctx context.Context, usd decimal.Decimal) (*domain.Quote, error) {
	start := time.Now()
	quote, err := o.next.QuoteEthForUsd(ctx, usd)

	if o.metrics != nil {
		o.metrics.OracleDuration.Observe(time.Since(start).Seconds())
		o.metrics.OracleRequests.WithLabelValues(outcome(err)).Inc()
	}

	return quote, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	default:
		return "error"
	}
}
