package collector

import (
	"context"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

// LogSink writes steps and results to the structured log.
type LogSink struct {
	Logger *log.Entry
}

func (s LogSink) entry(meta Meta) *log.Entry {
	return s.Logger.WithFields(log.F{
		"run":  meta.RunID,
		"case": meta.Name,
		"row":  meta.Row,
	})
}

func (s LogSink) OnStep(meta Meta, step Step) {
	entry := s.entry(meta).WithField("step", step.Sequence)
	switch step.Status {
	case db.StepFail:
		entry.Error(step.Message)
	case db.StepPass:
		entry.Info(step.Message)
	default:
		entry.Debug(step.Message)
	}
}

func (s LogSink) OnResult(result Result) error {
	entry := s.entry(result.Meta).WithFields(log.F{
		"status":   result.Status,
		"duration": result.Duration().String(),
	})
	switch result.Status {
	case db.StatusFailed:
		entry.WithField("error", result.Error).Error("case failed")
	case db.StatusSkipped:
		entry.Warn("case skipped")
	default:
		entry.Info("case passed")
	}
	return nil
}

// StoreSink persists every result together with its steps in one
// transaction.
type StoreSink struct {
	DB      db.ReadWriter
	Timeout time.Duration
}

func (s StoreSink) OnStep(Meta, Step) {}

func (s StoreSink) OnResult(result Result) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tx, err := s.DB.NewTx(ctx)
	if err != nil {
		return errors.Wrap(err, "could not start report transaction")
	}
	defer tx.Rollback()

	caseResultID := uuid.NewString()
	if err := tx.InsertCaseResult(db.CaseResult{
		ID:         caseResultID,
		RunID:      result.RunID,
		Sequence:   result.Sequence,
		Name:       result.Name,
		Kind:       result.Kind,
		ShowName:   result.ShowName,
		Author:     result.Author,
		Source:     result.Source,
		Row:        result.Row,
		Status:     result.Status,
		Error:      result.Error,
		StartedAt:  result.StartedAt.UnixMilli(),
		FinishedAt: result.FinishedAt.UnixMilli(),
	}); err != nil {
		return errors.Wrapf(err, "could not store result of %s", result.Name)
	}
	for _, step := range result.Steps {
		if err := tx.InsertStep(db.Step{
			ID:           uuid.NewString(),
			CaseResultID: caseResultID,
			Sequence:     step.Sequence,
			Status:       step.Status,
			Message:      step.Message,
			CreatedAt:    step.Time.UnixMilli(),
		}); err != nil {
			return errors.Wrapf(err, "could not store step %d of %s", step.Sequence, result.Name)
		}
	}
	return tx.Commit()
}

// MetricsSink counts steps and cases and observes case durations.
type MetricsSink struct {
	steps    *prometheus.CounterVec
	cases    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetricsSink(registry prometheus.Registerer, namespace string) *MetricsSink {
	sink := &MetricsSink{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cases", Name: "steps_total",
			Help: "steps logged by test cases",
		}, []string{"status"}),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cases", Name: "results_total",
			Help: "finished test cases by kind and outcome",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "cases", Name: "duration_seconds",
			Help:    "test case durations",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
	}
	registry.MustRegister(sink.steps, sink.cases, sink.duration)
	return sink
}

func (s *MetricsSink) OnStep(_ Meta, step Step) {
	s.steps.WithLabelValues(step.Status).Inc()
}

func (s *MetricsSink) OnResult(result Result) error {
	s.cases.WithLabelValues(result.Kind, result.Status).Inc()
	if result.Status != db.StatusSkipped {
		s.duration.WithLabelValues(result.Kind).Observe(result.Duration().Seconds())
	}
	return nil
}

// StatsdClient is the part of the datadog client the sink uses.
type StatsdClient interface {
	Incr(name string, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
}

var _ StatsdClient = (*statsd.Client)(nil)

// NewStatsdClient connects to a statsd agent at addr (host:port).
func NewStatsdClient(addr string) (*statsd.Client, error) {
	client, err := statsd.New(addr, statsd.WithNamespace("contract_autotests."))
	if err != nil {
		return nil, errors.Wrapf(err, "could not create statsd client for %s", addr)
	}
	return client, nil
}

// StatsdSink mirrors the metrics sink onto statsd. Send errors are logged
// and otherwise ignored.
type StatsdSink struct {
	Client StatsdClient
	Logger *log.Entry
}

func (s StatsdSink) warn(err error) {
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("could not send statsd metric")
	}
}

func (s StatsdSink) OnStep(meta Meta, step Step) {
	s.warn(s.Client.Incr("steps", []string{"status:" + step.Status, "kind:" + meta.Kind}, 1))
}

func (s StatsdSink) OnResult(result Result) error {
	tags := []string{"status:" + result.Status, "kind:" + result.Kind}
	s.warn(s.Client.Incr("cases", tags, 1))
	s.warn(s.Client.Gauge("case.steps", float64(len(result.Steps)), tags, 1))
	if result.Status != db.StatusSkipped {
		s.warn(s.Client.Timing("case.duration", result.Duration(), tags, 1))
	}
	return nil
}
