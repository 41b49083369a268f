// Package monitoring tracks health probes and maintenance jobs and exposes them to Prometheus.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "authcore"

// Options control monitoring module configuration.
type Options struct {
	// Namespace prefixes every collector. Defaults to "authcore".
	Namespace string
}

// Module owns a private Prometheus registry for probe and job collectors, the health
// manager that feeds them and the maintenance job state read by readiness.
type Module struct {
	registry *prometheus.Registry
	metrics  *collectors
	jobs     *jobStore
	health   *HealthManager
}

// NewModule registers the module collectors on a fresh registry. Separate namespaces let
// tests build several modules in one process.
func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	registry := prometheus.NewRegistry()
	metrics := newCollectors(namespace)
	for _, c := range metrics.all() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Module{
		registry: registry,
		metrics:  metrics,
		jobs:     newJobStore(),
		health:   newHealthManager(metrics),
	}, nil
}

// Handler serves the module registry merged with the default one, which carries the HTTP
// and auth counters and the Go runtime collectors. Scrapes of the handler itself are
// counted on the module registry.
func (m *Module) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
	}
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, m.registry}
	return promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	}))
}

// Health returns the manager that evaluates liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}
