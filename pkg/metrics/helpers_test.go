package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

// sample returns the series of family name carrying every label in want, or
// nil when there is none.
func sample(mfs []*dto.MetricFamily, name string, want map[string]string) *dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, want) {
				return m
			}
		}
	}
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	m := sample(mfs, name, labels)
	if m == nil {
		t.Fatalf("no %s series with labels %v", name, labels)
	}
	return m.GetCounter().GetValue()
}
