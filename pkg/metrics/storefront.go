package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// StorefrontMetrics records checkout and webhook reconciliation activity.
type StorefrontMetrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	ordersFulfilled prometheus.Counter
}

// New registers the storefront metrics on the provided registerer. A nil
// registerer yields a recorder whose methods are no-ops.
func New(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhook_events_total",
		Help: "Payment provider webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_webhook_duration_seconds",
		Help:    "Time spent handling payment provider webhooks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout session creation attempts by outcome.",
	}, []string{"outcome"})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders inserted into the ledger.",
	})
	ordersFulfilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_fulfilled_total",
		Help: "Orders moved to payment_received.",
	})
	reg.MustRegister(webhookEvents, webhookDuration, checkouts, ordersCreated, ordersFulfilled)
	return &StorefrontMetrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		checkouts:       checkouts,
		ordersCreated:   ordersCreated,
		ordersFulfilled: ordersFulfilled,
	}
}

// ObserveWebhook counts one webhook delivery and records its handling time.
func (m *StorefrontMetrics) ObserveWebhook(eventType, outcome string, duration time.Duration) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	m.webhookEvents.WithLabelValues(eventType, normalizeLabel(outcome)).Inc()
	m.webhookDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *StorefrontMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *StorefrontMetrics) IncOrderFulfilled() {
	if m == nil || m.ordersFulfilled == nil {
		return
	}
	m.ordersFulfilled.Inc()
}

// Handler exposes the gatherer over HTTP for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
