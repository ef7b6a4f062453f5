package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_command_duration_seconds",
			Help:    "Ledger command execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
		[]string{"command", "outcome"},
	)

	ruleViolationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rule_violations_total",
			Help: "Total rule violations reported during command transactions",
		},
		[]string{"rule", "severity"},
	)

	escrowMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_escrow_moved_cents_total",
			Help: "Total cents moved through escrow by direction",
		},
		[]string{"direction"}, // direction: deposit, release, refund
	)
)

func observeCommand(command, outcome string, start time.Time) {
	commandDuration.WithLabelValues(command, outcome).Observe(time.Since(start).Seconds())
}

func countViolations(result Result) {
	for _, v := range result.Violations {
		ruleViolationCount.WithLabelValues(v.Rule, string(v.Severity)).Inc()
	}
}

func recordEscrowMoved(direction string, amount Amount) {
	if amount <= 0 {
		return
	}
	escrowMovedTotal.WithLabelValues(direction).Add(float64(amount))
}
