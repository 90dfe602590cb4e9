package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Purchases             *prometheus.CounterVec
	ReconciliationEntries *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Purchases: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_purchases_total",
			Help: "Purchase attempts by kind (curated, arbitrary) and outcome",
		}, []string{"kind", "outcome"}),
		ReconciliationEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainvault_reconciliation_entries_total",
			Help: "Purchases queued for manual reconciliation by outcome (committed, unknown)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncPurchase(kind, outcome string) {
	m.Purchases.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncReconciliation(outcome string) {
	m.ReconciliationEntries.WithLabelValues(outcome).Inc()
}
