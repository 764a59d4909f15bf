package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_rewards_operations_total",
			Help: "Total number of engine operations",
		},
		[]string{"op", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pool_rewards_operation_duration_seconds",
			Help:    "Duration of engine operations including the store commit",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		},
		[]string{"op"},
	)

	PayoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_rewards_payouts_total",
			Help: "Total number of payouts handed to the payout hook",
		},
	)

	JournalOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_rewards_journal_operations_total",
			Help: "Total number of journal lines processed by replay",
		},
		[]string{"status"},
	)

	DepositsIndexedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_rewards_deposits_indexed_total",
			Help: "Total number of custody deposits turned into accumulate operations",
		},
	)
)
