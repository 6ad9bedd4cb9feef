package metrics

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellar/go/support/logmetrics"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
)

const (
	prometheusNamespace = "contract_autotests"
)

// Registry extends the prometheus registry with its http handler and the
// log line counters.
type Registry struct {
	*prometheus.Registry
	HTTPHandler http.Handler
	// LogHook counts the log lines emitted per level. Add it to the logger.
	LogHook logmetrics.Metrics
}

func MakeRegistry() *Registry {
	registry := prometheus.NewRegistry()
	buildInfoGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: prometheusNamespace, Subsystem: "build", Name: "info"},
		[]string{"version", "goversion", "commit", "branch", "build_timestamp"},
	)
	logMetricsHook := logmetrics.New(prometheusNamespace)

	httpHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	buildInfoGauge.With(prometheus.Labels{
		"version":         config.Version,
		"commit":          config.CommitHash,
		"branch":          config.Branch,
		"build_timestamp": config.BuildTimestamp,
		"goversion":       runtime.Version(),
	}).Inc()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(buildInfoGauge)

	for _, counter := range logMetricsHook {
		registry.MustRegister(counter)
	}

	return &Registry{registry, httpHandler, logMetricsHook}
}

func (r *Registry) Namespace() string {
	return prometheusNamespace
}
