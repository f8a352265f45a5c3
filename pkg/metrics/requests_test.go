package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRequestMetricsCountsTransitions(t *testing.T) {
	m := NewRequestMetrics(prometheus.NewRegistry())
	m.ObserveTransition("approve", "")
	m.ObserveTransition("approve", "ok")
	m.ObserveTransition("fulfill", "invalid_transition")
	m.ObserveQuotaCheck(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("approve", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("fulfill", "invalid_transition")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.quota.WithLabelValues("denied")))
	assert.Zero(t, testutil.ToFloat64(m.quota.WithLabelValues("allowed")))
}

func TestRequestMetricsUnnamedTransition(t *testing.T) {
	m := NewRequestMetrics(prometheus.NewRegistry())
	m.ObserveTransition("", "dependency_error")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("unknown", "dependency_error")))
}

func TestNilRequestMetricsIsNoop(t *testing.T) {
	var m *RequestMetrics
	m.ObserveTransition("approve", "")
	m.ObserveQuotaCheck(true)
	NewRequestMetrics(nil).ObserveTransition("cancel", "")
}
