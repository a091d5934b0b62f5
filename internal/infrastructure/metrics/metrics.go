package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Approval metrics
	ApprovalsCreated *prometheus.CounterVec
	ApprovalsSwept   prometheus.Counter

	// Transfer metrics
	TransfersExecuted *prometheus.CounterVec
	TransfersRejected *prometheus.CounterVec
	TransferDuration  prometheus.Histogram
	TransferAmount    prometheus.Histogram
	PriceDrift        prometheus.Histogram

	// Price oracle metrics
	OracleRequests *prometheus.CounterVec
	OracleDuration prometheus.Histogram

	// Delivery metrics
	NotificationsSent *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Approval metrics
		ApprovalsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_approvals_created_total",
				Help: "Total number of approvals created by denomination",
			},
			[]string{"denomination"},
		),
		ApprovalsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "cypherd_approvals_swept_total",
			Help: "Total number of expired approvals removed by the sweeper",
		}),

		// Transfer metrics
		TransfersExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_transfers_executed_total",
				Help: "Total number of settled transfers by type",
			},
			[]string{"type"},
		),
		TransfersRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_transfers_rejected_total",
				Help: "Total number of rejected approval executions by reason",
			},
			[]string{"reason"},
		),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cypherd_transfer_duration_seconds",
			Help:    "Duration of approval executions",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cypherd_transfer_amount_eth",
			Help:    "Settled transfer amounts in ETH",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 100, 1000},
		}),
		PriceDrift: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cypherd_price_drift_percent",
			Help:    "Drift between creation and execution quotes for USD transfers",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 1, 2, 5, 10},
		}),

		// Price oracle metrics
		OracleRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_oracle_requests_total",
				Help: "Total price oracle requests by outcome",
			},
			[]string{"outcome"},
		),
		OracleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cypherd_oracle_duration_seconds",
			Help:    "Price oracle request duration",
			Buckets: prometheus.DefBuckets,
		}),

		// Delivery metrics
		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_notifications_total",
				Help: "Total notifications attempted by outcome",
			},
			[]string{"outcome"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cypherd_events_published_total",
				Help: "Total domain events published by outcome",
			},
			[]string{"outcome"},
		),
	}
}
