package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers registrar round trips, the circuit breaker and the lookup cache.
type Metrics struct {
	CallDuration *prometheus.HistogramVec
	CircuitOpen  prometheus.Gauge
	CacheLookups *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainvault_registrar_call_duration_seconds",
			Help:    "Registrar round trip latency by command and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"command", "outcome"}),
		CircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "domainvault_registrar_circuit_open",
			Help: "1 while the registrar circuit breaker is open",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_lookup_cache_total",
			Help: "Browse-path lookup cache results by kind (check, pricing) and result (hit, miss)",
		}, []string{"kind", "result"}),
	}
}

// ObserveCall records one round trip. Call with time.Now() taken before the request.
func (m *Metrics) ObserveCall(command, outcome string, start time.Time) {
	m.CallDuration.WithLabelValues(command, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitOpen.Set(1)
		return
	}
	m.CircuitOpen.Set(0)
}

func (m *Metrics) IncCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}
