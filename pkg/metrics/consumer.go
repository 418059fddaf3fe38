package metrics

import "github.com/prometheus/client_golang/prometheus"

// Consumer outcome label values.
const (
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeRetry     = "retry"
)

// ConsumerMetrics counts Pub/Sub deliveries by how they were settled.
type ConsumerMetrics struct {
	deliveries *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	m := &ConsumerMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "deliveries_total",
			Help:      "Pub/Sub deliveries by consumer, event type and outcome.",
		}, []string{"consumer", "event_type", "outcome"}),
	}
	reg.MustRegister(m.deliveries)
	return m
}

func (m *ConsumerMetrics) Delivery(consumer, eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
