package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ItemsAdded    prometheus.Counter
	CheckoutItems *prometheus.CounterVec
	ItemsExpired  prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ItemsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_cart_items_added_total",
			Help: "Cart items added",
		}),
		CheckoutItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_cart_checkout_items_total",
			Help: "Cart items processed at checkout by outcome (purchased, failed)",
		}, []string{"outcome"}),
		ItemsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainvault_cart_items_expired_total",
			Help: "Active cart items expired by the periodic worker",
		}),
	}
}

func (m *Metrics) IncAdded() {
	m.ItemsAdded.Inc()
}

func (m *Metrics) IncCheckout(outcome string) {
	m.CheckoutItems.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddExpired(n int) {
	m.ItemsExpired.Add(float64(n))
}
