package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order submissions and payment confirmations.
type CheckoutMetrics struct {
	submissions   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submissions_total",
			Help:      "Order submissions by payment method and terminal state.",
		}, []string{"payment_method", "outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmations by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
	}
	reg.MustRegister(m.submissions, m.confirmations)
	return m
}

// Submission records a SubmitOrder result.
func (m *CheckoutMetrics) Submission(paymentMethod, outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(paymentMethod), normalizeLabel(outcome)).Inc()
}

// Confirmation records a gateway confirmation attempt.
func (m *CheckoutMetrics) Confirmation(gateway, outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}
