package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts guard transitions, payment intents and scheduled consultations.
type CheckoutMetrics struct {
	transitions   *prometheus.CounterVec
	intents       *prometheus.CounterVec
	consultations prometheus.Counter
	widgetMounts  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_transitions_total",
		Help: "Checkout guard state transitions.",
	}, []string{"from", "to"})
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment intent creation attempts by outcome.",
	}, []string{"outcome"})
	consultations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consultations_scheduled_total",
		Help: "Scheduling widget events that unlocked checkout.",
	})
	widgetMounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_widget_mounts_total",
		Help: "Scheduling widget mounts by readiness.",
	}, []string{"ready"})
	reg.MustRegister(transitions, intents, consultations, widgetMounts)
	return &CheckoutMetrics{
		transitions:   transitions,
		intents:       intents,
		consultations: consultations,
		widgetMounts:  widgetMounts,
	}
}

// IncTransition records a guard moving from one state to another.
func (m *CheckoutMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncPaymentIntent records a payment intent outcome (created, invalid, provider_error, ...).
func (m *CheckoutMetrics) IncPaymentIntent(outcome string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) IncConsultationScheduled() {
	if m == nil || m.consultations == nil {
		return
	}
	m.consultations.Inc()
}

// IncWidgetMount records whether a mounted widget became ready.
func (m *CheckoutMetrics) IncWidgetMount(ready bool) {
	if m == nil || m.widgetMounts == nil {
		return
	}
	label := "false"
	if ready {
		label = "true"
	}
	m.widgetMounts.WithLabelValues(label).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
