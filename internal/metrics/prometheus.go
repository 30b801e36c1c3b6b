package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the booking engine's prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	PaymentFailures *prometheus.CounterVec
	Conflicts       prometheus.Counter
	Expired         prometheus.Counter
	GatewayLatency  *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking actions by outcome",
		}, []string{"action", "result"}),
		PaymentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Failed payment gateway operations",
		}, []string{"operation"}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_conflicts_total",
			Help:      "Booking requests refused because the vehicle was taken",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_expired_total",
			Help:      "Pending bookings expired by the sweep",
		}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_gateway_seconds",
			Help:      "Payment gateway call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveTransition(action, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObservePaymentFailure(operation string) {
	if m == nil {
		return
	}
	m.PaymentFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

func (m *Metrics) ObserveExpired(n int) {
	if m == nil {
		return
	}
	m.Expired.Add(float64(n))
}

func (m *Metrics) ObserveGateway(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
