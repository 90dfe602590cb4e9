package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the curated inventory.
// Tracks reservation outcomes and sweep volume.
type Metrics struct {
	Reservations *prometheus.CounterVec
	Releases     *prometheus.CounterVec
	SweptHolds   prometheus.Counter
}

// New creates a new Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_reservations_total",
			Help: "Reservation attempts by outcome (granted, unavailable, not_found, error)",
		}, []string{"outcome"}),
		Releases: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_reservation_releases_total",
			Help: "Explicit reservation releases by who released (holder, admin)",
		}, []string{"by"}),
		SweptHolds: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_reservations_swept_total",
			Help: "Expired holds returned to available by the sweeper",
		}),
	}
}

func (m *Metrics) IncReservation(outcome string) {
	m.Reservations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRelease(by string) {
	m.Releases.WithLabelValues(by).Inc()
}

func (m *Metrics) AddSwept(n int) {
	m.SweptHolds.Add(float64(n))
}
