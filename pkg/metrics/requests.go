package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics counts request lifecycle activity.
type RequestMetrics struct {
	transitions *prometheus.CounterVec
	quota       *prometheus.CounterVec
}

// NewRequestMetrics registers the request counters on the provided registerer.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "request_transitions_total",
		Help:      "Supply request transitions by action and outcome.",
	}, []string{"transition", "outcome"})
	quota := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "quota_checks_total",
		Help:      "Monthly quota evaluations by result.",
	}, []string{"result"})
	reg.MustRegister(transitions, quota)
	return &RequestMetrics{transitions: transitions, quota: quota}
}

// ObserveTransition records one transition attempt. Outcome is "ok" or a
// lowercased error code such as "invalid_transition".
func (m *RequestMetrics) ObserveTransition(transition, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.transitions.WithLabelValues(normalizeLabel(transition), outcome).Inc()
}

// ObserveQuotaCheck records whether a quota check allowed the request.
func (m *RequestMetrics) ObserveQuotaCheck(allowed bool) {
	if m == nil || m.quota == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.quota.WithLabelValues(result).Inc()
}
