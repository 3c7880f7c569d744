package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	Relayed      prometheus.Counter
	Failures     prometheus.Counter
	BreakerState prometheus.Gauge
}

// NewMetrics creates a Metrics instance with relay metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Relayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idregistry_audit_relay_published_total",
			Help: "Total number of outbox entries relayed to the event bus",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idregistry_audit_relay_failures_total",
			Help: "Total number of failed publish attempts",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idregistry_audit_relay_breaker_open",
			Help: "Whether the audit bus circuit breaker is open (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) AddRelayed(n int) {
	if m == nil {
		return
	}
	m.Relayed.Add(float64(n))
}

func (m *Metrics) IncrementFailures() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
