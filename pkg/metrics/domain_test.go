package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.ObserveTransition("PENDING", "APPROVED")
	m.ObserveTransition("PENDING", "APPROVED")
	m.IncInventoryConflict("reserve", "INSUFFICIENT_STOCK")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	fam := findMetricFamily(mfs, "order_transitions_total")
	if fam == nil || len(fam.GetMetric()) != 1 {
		t.Fatalf("expected one transition series, got %+v", fam)
	}
	metric := fam.GetMetric()[0]
	if !matchesLabel(metric.GetLabel(), "from", "PENDING") || !matchesLabel(metric.GetLabel(), "to", "APPROVED") {
		t.Fatalf("unexpected labels %+v", metric.GetLabel())
	}
	if metric.GetCounter().GetValue() != 2 {
		t.Fatalf("expected 2 transitions, got %f", metric.GetCounter().GetValue())
	}

	got, err := fetchCounterValue(mfs, "inventory_conflicts_total", "operation", "reserve")
	if err != nil {
		t.Fatalf("fetch conflicts: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 conflict, got %f", got)
	}
}

func TestDomainMetricsNilSafe(t *testing.T) {
	var m *DomainMetrics
	m.ObserveTransition("A", "B")
	m.IncInventoryConflict("reserve", "X")
	NewDomainMetrics(nil).ObserveTransition("A", "B")
}
