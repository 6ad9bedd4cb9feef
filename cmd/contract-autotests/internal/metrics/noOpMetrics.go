package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MakeNoOpRegistry returns a registry without the process wide collectors,
// so that tests can register their metrics repeatedly.
func MakeNoOpRegistry() *Registry {
	registry := prometheus.NewRegistry()
	httpHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &Registry{registry, httpHandler, nil}
}
