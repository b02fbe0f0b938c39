package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	eventsEmitted   *prometheus.CounterVec
	callsScheduled  *prometheus.CounterVec
	refundsResolved *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

func registry() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledgerkit",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Total events emitted segmented by standard and event type.",
			}, []string{"standard", "event"}),
			callsScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledgerkit",
				Subsystem: "notify",
				Name:      "calls_scheduled_total",
				Help:      "Total asynchronous notify calls scheduled segmented by standard.",
			}, []string{"standard"}),
			refundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledgerkit",
				Subsystem: "notify",
				Name:      "refunds_total",
				Help:      "Total notify-protocol compensations segmented by standard and outcome.",
			}, []string{"standard", "outcome"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.eventsEmitted,
			ledgerRegistry.callsScheduled,
			ledgerRegistry.refundsResolved,
		)
	})
	return ledgerRegistry
}

// EventEmitted records one emitted event.
func EventEmitted(standard, event string) {
	registry().eventsEmitted.WithLabelValues(standard, event).Inc()
}

// CallScheduled records one scheduled notify call.
func CallScheduled(standard string) {
	registry().callsScheduled.WithLabelValues(standard).Inc()
}

// RefundResolved records one notify-protocol compensation outcome. Outcome is
// one of "accepted", "partial", "refunded", or "burned".
func RefundResolved(standard, outcome string) {
	registry().refundsResolved.WithLabelValues(standard, outcome).Inc()
}
