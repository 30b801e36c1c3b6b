package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics("carrental", prometheus.NewRegistry())

	m.ObserveTransition("accept", "success")
	m.ObserveTransition("accept", "success")
	m.ObserveTransition("accept", "invalid_transition")
	m.ObservePaymentFailure("charge")
	m.ObserveConflict()
	m.ObserveExpired(3)
	m.ObserveGateway("charge", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentFailures.WithLabelValues("charge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Expired))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("accept", "success")
		m.ObservePaymentFailure("charge")
		m.ObserveConflict()
		m.ObserveExpired(1)
		m.ObserveGateway("charge", time.Now())
	})
}
