package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay outcomes per event type.
type OutboxMetrics struct {
	events *prometheus.CounterVec
	batch  prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batch := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "outbox",
		Name:      "last_batch_size",
		Help:      "Rows claimed by the most recent relay batch.",
	})
	reg.MustRegister(events, batch)
	return &OutboxMetrics{events: events, batch: batch}
}

func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) SetBatchSize(n int) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Set(float64(n))
}

// Counter exposes one series, mainly for assertions.
func (m *OutboxMetrics) Counter(eventType, outcome string) prometheus.Counter {
	return m.events.WithLabelValues(normalizeLabel(eventType), outcome)
}
