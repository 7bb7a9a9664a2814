package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts order and inventory events on the API side.
type DomainMetrics struct {
	orderTransitions   *prometheus.CounterVec
	inventoryConflicts *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters. A nil registerer yields a
// no-op recorder so services can be built without prometheus in tests.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Committed order status transitions.",
		}, []string{"from", "to"}),
		inventoryConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_conflicts_total",
			Help: "Inventory operations rejected by a stock guard.",
		}, []string{"operation", "code"}),
	}
	reg.MustRegister(m.orderTransitions, m.inventoryConflicts)
	return m
}

// ObserveTransition counts one committed order transition.
func (m *DomainMetrics) ObserveTransition(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncInventoryConflict counts a reserve/consume/adjust refused for lack of stock.
func (m *DomainMetrics) IncInventoryConflict(operation, code string) {
	if m == nil || m.inventoryConflicts == nil {
		return
	}
	m.inventoryConflicts.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}
