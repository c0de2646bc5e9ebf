package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking wizard.
type BookingMetrics struct {
	transitions     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	validationFails *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	paymentLatency  *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westbrook",
			Subsystem: "wizard",
			Name:      "step_transitions_total",
			Help:      "Wizard step transitions",
		}, []string{"from", "to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westbrook",
			Subsystem: "wizard",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by method and outcome",
		}, []string{"method", "outcome"}),
		validationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westbrook",
			Subsystem: "wizard",
			Name:      "validation_failures_total",
			Help:      "Rejected form fields",
		}, []string{"field"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westbrook",
			Subsystem: "wizard",
			Name:      "sessions_started_total",
			Help:      "Sessions started, fresh or restored from storage",
		}, []string{"origin"}),
		paymentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "westbrook",
			Subsystem: "wizard",
			Name:      "checkout_duration_seconds",
			Help:      "Time spent in checkout including the simulated gateway",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.payments, m.validationFails, m.sessions, m.paymentLatency)
	return m
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *BookingMetrics) ObserveCheckout(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, outcome).Inc()
	m.paymentLatency.WithLabelValues(method).Observe(seconds)
}

func (m *BookingMetrics) ObserveValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFails.WithLabelValues(field).Inc()
}

func (m *BookingMetrics) ObserveSessionStart(restored bool) {
	if m == nil {
		return
	}
	origin := "fresh"
	if restored {
		origin = "restored"
	}
	m.sessions.WithLabelValues(origin).Inc()
}
