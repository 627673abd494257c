package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the first sample of family name whose labels include want.
func gathered(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	samples:
		for _, s := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range s.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue samples
				}
			}
			if s.GetCounter() != nil {
				return s.GetCounter().GetValue()
			}
			return s.GetGauge().GetValue()
		}
	}

	t.Fatalf("metric %s %v not found", name, want)
	return 0
}

func TestMetrics(t *testing.T) {
	m := New()

	m.ErrorTranslated("MissingError", 404)
	m.ErrorTranslated("MissingError", 404)
	m.RoutingRebuilt(12, 7)
	m.RoutingReset("remote")

	assert.Equal(t, 2.0, gathered(t, m, "endpoint_bridge_errors_translated_total", map[string]string{"category": "MissingError", "status": "404"}))
	assert.Equal(t, 1.0, gathered(t, m, "endpoint_bridge_routing_rebuilds_total", nil))
	assert.Equal(t, 12.0, gathered(t, m, "endpoint_bridge_routing_routes", nil))
	assert.Equal(t, 7.0, gathered(t, m, "endpoint_bridge_routing_registry_version", nil))
	assert.Equal(t, 1.0, gathered(t, m, "endpoint_bridge_routing_resets_total", map[string]string{"origin": "remote"}))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ErrorTranslated("Exception", 500)
		m.RoutingRebuilt(1, 1)
		m.RoutingReset("local")
	})
}
