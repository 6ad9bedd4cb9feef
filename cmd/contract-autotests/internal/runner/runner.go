// Package runner expands a suite into case executions and runs them on a
// worker pool, reporting every result to the collector sinks.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/cases"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/suite"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/tracing"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/util"
)

const (
	defaultDBTimeout = 30 * time.Second

	reasonFailFast  = "skipped after an earlier failure"
	reasonCancelled = "run cancelled"
)

type Config struct {
	Registry *cases.Registry
	Env      *cases.Env
	Provider *datasource.Provider
	// DB stores the run row. Case results reach it through a
	// collector.StoreSink in Sinks. Nil keeps the run in memory only.
	DB    db.ReadWriter
	Sinks []collector.Sink

	WorkerCount uint
	CaseTimeout time.Duration
	FailFast    bool

	// Run metadata stored with the run.
	NodeURL  string
	ChainID  string
	Revision string

	Logger  *log.Entry
	Metrics *metrics.Registry
	Tracer  trace.Tracer
}

// Report is the outcome of a run. Results follow the order of the suite and
// of the rows of each source.
type Report struct {
	Run     db.Run
	Results []collector.Result
}

func (r *Report) Passed() bool {
	return r.Run.Status == db.StatusPassed
}

type Runner struct {
	cfg           Config
	logger        *log.Entry
	tracer        trace.Tracer
	panicsCounter prometheus.Counter
}

func New(cfg Config) *Runner {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	r := &Runner{
		cfg:    cfg,
		logger: cfg.Logger,
		tracer: cfg.Tracer,
	}
	if r.logger == nil {
		r.logger = log.DefaultLogger
	}
	if r.tracer == nil {
		r.tracer = tracing.Tracer()
	}
	if cfg.Metrics != nil {
		r.panicsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Metrics.Namespace(), Subsystem: "cases", Name: "panics_total",
			Help: "case executions which panicked",
		})
		cfg.Metrics.MustRegister(r.panicsCounter)
	}
	return r
}

// job is one case execution: one data row of one suite entry. A job whose
// setup failed carries the error and fails without running.
type job struct {
	meta collector.Meta
	impl cases.Case
	row  datasource.Row
	err  error
}

// execution holds the state of a single Run call.
type execution struct {
	*Runner
	failed atomic.Bool
}

// Run executes every case of s. The returned error only reports
// infrastructure failures, failing cases are part of the report.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (*Report, error) {
	started := time.Now()
	run := db.Run{
		ID:        uuid.NewString(),
		Suite:     s.Name,
		NodeURL:   r.cfg.NodeURL,
		ChainID:   r.cfg.ChainID,
		Revision:  r.cfg.Revision,
		Status:    db.StatusRunning,
		StartedAt: started.UnixMilli(),
	}
	if err := r.storeRun(func(tx db.WriteTx) error { return tx.InsertRun(run) }); err != nil {
		return nil, errors.Wrap(err, "could not store run")
	}
	logger := r.logger.WithField("run", run.ID)

	jobs := r.expand(run.ID, s)
	logger.WithFields(log.F{
		"suite":   s.Name,
		"cases":   len(s.Cases),
		"jobs":    len(jobs),
		"workers": r.cfg.WorkerCount,
	}).Info("starting run")

	e := &execution{Runner: r}
	workerCount := r.cfg.WorkerCount
	if n := uint(len(jobs)); n < workerCount {
		workerCount = n
	}
	pool := newWorkerPool(workerCount, e.execute)
	pending := make([]chan collector.Result, len(jobs))
	for i, j := range jobs {
		pending[i] = make(chan collector.Result, 1)
		if err := pool.submit(ctx, j, pending[i]); err != nil {
			pending[i] <- e.skip(j, fmt.Sprintf("%s: %v", reasonCancelled, err))
		}
	}
	pool.close()

	report := &Report{Results: make([]collector.Result, len(jobs))}
	for i, ch := range pending {
		result := <-ch
		report.Results[i] = result
		switch result.Status {
		case db.StatusPassed:
			run.Passed++
		case db.StatusFailed:
			run.Failed++
		case db.StatusSkipped:
			run.Skipped++
		}
	}

	run.Status = db.StatusPassed
	if run.Failed > 0 || run.Skipped > 0 {
		run.Status = db.StatusFailed
	}
	finished := time.Now()
	run.FinishedAt = finished.UnixMilli()
	if err := r.storeRun(func(tx db.WriteTx) error { return tx.FinishRun(run) }); err != nil {
		return nil, errors.Wrap(err, "could not finish run")
	}
	report.Run = run

	logger.WithFields(log.F{
		"status":  run.Status,
		"passed":  run.Passed,
		"failed":  run.Failed,
		"skipped": run.Skipped,
	}).Infof("run finished in %s", collector.Elapsed(finished.Sub(started)))
	return report, nil
}

func (r *Runner) storeRun(write func(db.WriteTx) error) error {
	if r.cfg.DB == nil {
		return nil
	}
	// the run context may already be cancelled, the bookkeeping must land anyway
	ctx, cancel := context.WithTimeout(context.Background(), defaultDBTimeout)
	defer cancel()
	tx, err := r.cfg.DB.NewTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := write(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// expand turns the suite entries into jobs, one per data row. Cases without
// a source run once with their params as the only row.
func (r *Runner) expand(runID string, s *suite.Suite) []job {
	var jobs []job
	for _, entry := range s.Cases {
		base := collector.Meta{
			RunID:    runID,
			Name:     entry.Name,
			Kind:     entry.Kind,
			ShowName: entry.ShowName,
			Author:   entry.Author,
		}
		impl, err := r.cfg.Registry.New(entry.Kind)

		rows := []datasource.Row{datasource.NewRow(0, nil)}
		if err == nil && entry.Source != nil {
			source := entry.Source.WithDefaults()
			base.Source = source.String()
			rows, err = r.cfg.Provider.Rows(source)
			if err == nil && len(rows) == 0 {
				err = fmt.Errorf("%s has no enabled rows", source)
			}
		}
		if err != nil {
			meta := base
			meta.Sequence = len(jobs)
			jobs = append(jobs, job{meta: meta, err: err})
			continue
		}
		for _, row := range rows {
			meta := base
			meta.Sequence = len(jobs)
			meta.Row = row.Index()
			jobs = append(jobs, job{
				meta: meta,
				impl: impl,
				row:  row.WithDefaults(entry.Params),
			})
		}
	}
	return jobs
}

func (e *execution) skip(j job, reason string) collector.Result {
	result, err := collector.Skip(j.meta, reason, e.cfg.Sinks...)
	if err != nil {
		e.logger.WithError(err).WithField("case", j.meta.Name).Error("could not report skipped case")
	}
	return result
}

func (e *execution) execute(ctx context.Context, j job) collector.Result {
	if e.cfg.FailFast && e.failed.Load() {
		return e.skip(j, reasonFailFast)
	}
	if err := ctx.Err(); err != nil {
		return e.skip(j, fmt.Sprintf("%s: %v", reasonCancelled, err))
	}

	ctx, span := e.tracer.Start(ctx, j.meta.Kind, trace.WithAttributes(
		attribute.String("run.id", j.meta.RunID),
		attribute.String("case.name", j.meta.Name),
		attribute.Int("case.row", j.meta.Row),
	))
	defer span.End()
	if e.cfg.CaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CaseTimeout)
		defer cancel()
	}

	logger := e.logger.WithFields(log.F{
		"run":  j.meta.RunID,
		"case": j.meta.Name,
		"row":  j.meta.Row,
	})
	c := collector.New(j.meta, e.cfg.Sinks...)
	err := j.err
	if err == nil {
		env := cases.Env{}
		if e.cfg.Env != nil {
			env = *e.cfg.Env
		}
		env.Logger = logger
		err = util.RecoverablePanicGroup.Log(logger).Counter(e.panicsCounter).Run(func() error {
			return j.impl.Run(ctx, &env, j.row, c)
		})
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrapf(err, "case timed out after %s", e.cfg.CaseTimeout)
		}
	}

	result, sinkErr := c.Finish(err)
	if sinkErr != nil {
		logger.WithError(sinkErr).Error("could not report case result")
	}
	span.SetAttributes(
		attribute.String("case.status", result.Status),
		attribute.Int("case.steps", len(result.Steps)),
	)
	if result.Failed() {
		span.SetStatus(codes.Error, result.Error)
		e.failed.Store(true)
	}
	return result
}
