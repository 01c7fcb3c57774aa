package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	settlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of settlement workflow runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	checkoutSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout sessions created at the payment gateway",
		},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Verified payment gateway webhook events by type",
		},
		[]string{"type"},
	)
)

func ObserveSettlement(outcome string, elapsed time.Duration) {
	settlementsTotal.WithLabelValues(outcome).Inc()
	settlementDuration.Observe(elapsed.Seconds())
}

func CheckoutSessionCreated() {
	checkoutSessionsTotal.Inc()
}

func WebhookEvent(eventType string) {
	webhookEventsTotal.WithLabelValues(eventType).Inc()
}
