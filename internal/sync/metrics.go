package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_remote_fallback_total",
			Help: "Collection loads that fell back to the local cache",
		},
		[]string{"collection"},
	)

	outboxQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_outbox_queued_total",
			Help: "Remote writes deferred to the outbox",
		},
		[]string{"collection"},
	)
)

func recordRemoteFallback(collection string) {
	remoteFallbackTotal.WithLabelValues(collection).Inc()
}

func recordOutboxQueued(collection string) {
	outboxQueuedTotal.WithLabelValues(collection).Inc()
}
