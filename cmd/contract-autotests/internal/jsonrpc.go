package internal

import (
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/methods"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/network"
)

// Handler is the HTTP handler which serves the report JSON RPC responses
type Handler struct {
	bridge jhttp.Bridge
	logger *log.Entry
	http.Handler
}

// Close closes all the resources held by the Handler instances.
// After Close is called the Handler instance will stop accepting JSON RPC requests.
func (h Handler) Close() {
	if err := h.bridge.Close(); err != nil {
		h.logger.WithError(err).Warn("could not close bridge")
	}
}

type HandlerParams struct {
	ReportReader db.ReportReader
	Logger       *log.Entry
	Metrics      *metrics.Registry
}

type rpcMethod struct {
	name       string
	handler    jrpc2.Handler
	queueLimit uint64
}

// NewJSONRPCHandler constructs a Handler instance. Every method gets its own
// backlog and duration limits; the whole endpoint shares one more backlog.
func NewJSONRPCHandler(cfg *config.Config, params HandlerParams) Handler {
	limit := uint64(cfg.MaxConcurrentRequests)
	rpcMethods := []rpcMethod{
		{name: "getHealth", handler: methods.NewHealthCheck(params.ReportReader), queueLimit: limit},
		{name: "getRuns", handler: methods.NewGetRunsHandler(params.ReportReader), queueLimit: limit},
		{name: "getRun", handler: methods.NewGetRunHandler(params.ReportReader), queueLimit: limit},
		{name: "getCaseResults", handler: methods.NewGetCaseResultsHandler(params.ReportReader), queueLimit: limit},
		{name: "getSteps", handler: methods.NewGetStepsHandler(params.ReportReader), queueLimit: limit},
	}

	namespace := params.Metrics.Namespace()
	inflight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "network", Name: "rpc_inflight_requests",
		Help: "number of JSON RPC requests being served, per method",
	}, []string{"method"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "network", Name: "rpc_slow_requests_total",
		Help: "number of JSON RPC requests which exceeded the warning threshold, per method",
	}, []string{"method"})
	timeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "network", Name: "rpc_timed_out_requests_total",
		Help: "number of JSON RPC requests which exceeded the execution limit, per method",
	}, []string{"method"})
	httpInflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "network", Name: "http_inflight_requests",
		Help: "number of HTTP requests being served by the report endpoint",
	})
	params.Metrics.MustRegister(inflight, warnings, timeouts, httpInflight)

	bridgeMap := handler.Map{}
	for _, m := range rpcMethods {
		queueLimiter := network.MakeJrpcBacklogQueueLimiter(
			m.name, m.handler, inflight.WithLabelValues(m.name), m.queueLimit, params.Logger)
		durationLimiter := network.MakeJrpcRequestDurationLimiter(queueLimiter.Handle, network.DurationLimits{
			Warning:         cfg.RequestExecutionWarningThreshold,
			Limit:           cfg.MaxRequestExecutionDuration,
			WarningCounter:  warnings.WithLabelValues(m.name),
			TimeoutsCounter: timeouts.WithLabelValues(m.name),
			Logger:          params.Logger,
		})
		bridgeMap[m.name] = durationLimiter.Handle
	}
	bridge := jhttp.NewBridge(bridgeMap, nil)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
	})
	globalQueue := network.MakeHTTPBacklogQueueLimiter(
		corsMiddleware.Handler(bridge), httpInflight, limit, params.Logger)

	return Handler{
		bridge:  bridge,
		logger:  params.Logger,
		Handler: globalQueue,
	}
}
