package daemon

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof" //nolint:gosec
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dbsession "github.com/stellar/go/support/db"
	supportlog "github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/network"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/util"
)

const (
	defaultReadTimeout         = 5 * time.Second
	defaultShutdownGracePeriod = 10 * time.Second
)

// Daemon serves the stored run reports over JSON RPC and http exports.
type Daemon struct {
	db      dbsession.SessionInterface
	handler *internal.Handler
	router  http.Handler
	logger  *supportlog.Entry
	metrics *metrics.Registry
}

func (d *Daemon) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	d.router.ServeHTTP(writer, request)
}

func (d *Daemon) MetricsRegistry() *metrics.Registry {
	return d.metrics
}

func (d *Daemon) Close() error {
	d.handler.Close()
	return d.db.Close()
}

func MustNew(cfg *config.Config, logger *supportlog.Entry, registry *metrics.Registry) *Daemon {
	session, err := db.OpenSQLiteDB(cfg.SQLiteDBPath)
	if err != nil {
		logger.Fatalf("could not open database: %v", err)
	}
	return newDaemon(cfg, session, logger, registry)
}

func newDaemon(cfg *config.Config, session *dbsession.Session, logger *supportlog.Entry, registry *metrics.Registry) *Daemon {
	dbConn := dbsession.RegisterMetrics(session, registry.Namespace(), "db", registry.Registry)
	reader := db.NewReportReader(dbConn)

	handler := internal.NewJSONRPCHandler(cfg, internal.HandlerParams{
		ReportReader: reader,
		Logger:       logger,
		Metrics:      registry,
	})

	exportTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: registry.Namespace(), Subsystem: "network", Name: "export_timed_out_requests_total",
		Help: "number of run exports which exceeded the execution limit",
	})
	registry.MustRegister(exportTimeouts)
	export := network.MakeHTTPRequestDurationLimiter(
		internal.NewExportHandler(reader, logger),
		network.DurationLimits{
			Warning:         cfg.RequestExecutionWarningThreshold,
			Limit:           cfg.MaxRequestExecutionDuration,
			TimeoutsCounter: exportTimeouts,
			Logger:          logger,
		},
	)

	return &Daemon{
		db:      dbConn,
		handler: &handler,
		router:  internal.NewRouter(handler, export),
		logger:  logger,
		metrics: registry,
	}
}

// Run serves until the process receives SIGINT or SIGTERM.
func (d *Daemon) Run(endpoint string, adminEndpoint string) {
	server := &http.Server{
		Addr:        endpoint,
		Handler:     d,
		ReadTimeout: defaultReadTimeout,
	}

	d.logger.Infof("Starting report JSON RPC server on %v", endpoint)

	panicGroup := util.UnrecoverablePanicGroup.Log(d.logger)
	panicGroup.Go(func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			d.logger.Fatalf("report JSON RPC server encountered fatal error: %v", err)
		}
	})
	var adminServer *http.Server
	if adminEndpoint != "" {
		// pprof registers its debug endpoints in the default serve mux
		http.Handle("/metrics", d.metrics.HTTPHandler)
		adminServer = &http.Server{Addr: adminEndpoint, Handler: http.DefaultServeMux, ReadTimeout: defaultReadTimeout}
		panicGroup.Go(func() {
			if err := adminServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				d.logger.Errorf("admin server encountered fatal error: %v", err)
			}
		})
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), defaultShutdownGracePeriod)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		// Error from closing listeners, or context timeout:
		d.logger.Errorf("Error during report JSON RPC server Shutdown: %v", err)
	}
	if err := d.Close(); err != nil {
		d.logger.WithError(err).Error("could not close the daemon")
	}

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Errorf("Error during admin server Shutdown: %v", err)
		}
	}
}
