package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records fulfillment and webhook observability counters.
type PaymentMetrics struct {
	fulfillmentOutcomes *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	providerDuration    *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_outcomes_total",
		Help: "Fulfillment engine outcomes by result.",
	}, []string{"outcome"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound provider webhook events by type and result.",
	}, []string{"type", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_duration_seconds",
		Help:    "Duration of outbound payment provider calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(outcomes, events, duration)
	return &PaymentMetrics{
		fulfillmentOutcomes: outcomes,
		webhookEvents:       events,
		providerDuration:    duration,
	}
}

// IncFulfillmentOutcome increments the counter for the named outcome.
func (p *PaymentMetrics) IncFulfillmentOutcome(outcome string) {
	if p == nil || p.fulfillmentOutcomes == nil {
		return
	}
	p.fulfillmentOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent increments the counter for the given event type and result.
func (p *PaymentMetrics) IncWebhookEvent(eventType, result string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// ObserveProviderDuration records the duration of an outbound provider call.
func (p *PaymentMetrics) ObserveProviderDuration(operation string, duration time.Duration) {
	if p == nil || p.providerDuration == nil {
		return
	}
	p.providerDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
