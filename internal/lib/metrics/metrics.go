// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "endpoint_bridge"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	errorsTranslated *prometheus.CounterVec
	routingRebuilds  prometheus.Counter
	routingRoutes    prometheus.Gauge
	routingVersion   prometheus.Gauge
	registryResets   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		errorsTranslated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "errors",
			Name:      "translated_total",
			Help:      "Errors converted into JSON error responses, by category and response status.",
		}, []string{"category", "status"}),
		routingRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "rebuilds_total",
			Help:      "Times the endpoint routing table was rebuilt from the registry.",
		}),
		routingRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "routes",
			Help:      "Routes in the active endpoint routing table.",
		}),
		routingVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "registry_version",
			Help:      "Registry version the active routing table was built from.",
		}),
		registryResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "resets_total",
			Help:      "Routing table resets, by origin.",
		}, []string{"origin"}),
	}

	reg.MustRegister(m.errorsTranslated, m.routingRebuilds, m.routingRoutes, m.routingVersion, m.registryResets)
	return m
}

// ErrorTranslated counts one translated error.
func (m *Metrics) ErrorTranslated(category string, status int) {
	if m == nil {
		return
	}
	m.errorsTranslated.WithLabelValues(category, strconv.Itoa(status)).Inc()
}

// RoutingRebuilt records a rebuild of the routing table.
func (m *Metrics) RoutingRebuilt(routes int, version int64) {
	if m == nil {
		return
	}
	m.routingRebuilds.Inc()
	m.routingRoutes.Set(float64(routes))
	m.routingVersion.Set(float64(version))
}

// RoutingReset counts a routing table reset. origin is "local" or "remote".
func (m *Metrics) RoutingReset(origin string) {
	if m == nil {
		return
	}
	m.registryResets.WithLabelValues(origin).Inc()
}
