// Package metrics exposes Prometheus collectors for the play ledger.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	plays    *prometheus.CounterVec
	mints    *prometheus.CounterVec
	fees     prometheus.Counter
	events   *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the lazily registered ledger metrics.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			plays: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "playledger",
				Subsystem: "records",
				Name:      "plays_total",
				Help:      "Accepted plays segmented by whether a replay fee was charged.",
			}, []string{"fee_charged"}),
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "playledger",
				Subsystem: "records",
				Name:      "mints_total",
				Help:      "Reward asset mint attempts segmented by outcome.",
			}, []string{"outcome"}),
			fees: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "playledger",
				Subsystem: "token",
				Name:      "replay_fees_total",
				Help:      "Number of replay fees collected.",
			}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "playledger",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Ledger events handed to the message bus segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "playledger",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Ledger API requests segmented by transport, operation and error code.",
			}, []string{"transport", "operation", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "playledger",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for ledger API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"transport", "operation"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.plays,
			ledgerRegistry.mints,
			ledgerRegistry.fees,
			ledgerRegistry.events,
			ledgerRegistry.requests,
			ledgerRegistry.latency,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) RecordPlay(feeCharged bool) {
	if m == nil {
		return
	}
	if feeCharged {
		m.plays.WithLabelValues("true").Inc()
		m.fees.Inc()
		return
	}
	m.plays.WithLabelValues("false").Inc()
}

func (m *LedgerMetrics) RecordMint(outcome string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// ObserveRequest records one API call. code is the transport status (HTTP status or gRPC code).
func (m *LedgerMetrics) ObserveRequest(transport, operation, code string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(transport, operation, code).Inc()
	m.latency.WithLabelValues(transport, operation).Observe(seconds)
}
