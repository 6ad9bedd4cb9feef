package collector

import (
	"fmt"
	"sync"
	"time"

	"github.com/hako/durafmt"
	"github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

// Meta identifies one case execution, that is one data row of one suite
// entry.
type Meta struct {
	RunID    string
	Sequence int
	Name     string
	Kind     string
	ShowName string
	Author   string
	Source   string
	Row      int
}

type Step struct {
	Sequence int
	Status   string
	Message  string
	Time     time.Time
}

type Result struct {
	Meta
	Status     string
	Error      string
	Steps      []Step
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Result) Failed() bool {
	return r.Status == db.StatusFailed
}

// Sink receives the steps of a case as they are logged, and its result
// once the case is over.
type Sink interface {
	OnStep(meta Meta, step Step)
	OnResult(result Result) error
}

// Collector records the steps of a single case execution. A case fails as
// soon as one failing step was logged.
type Collector struct {
	meta  Meta
	sinks []Sink
	now   func() time.Time

	mu       sync.Mutex
	steps    []Step
	failed   bool
	errMsg   string
	started  time.Time
	finished *Result
}

func New(meta Meta, sinks ...Sink) *Collector {
	return newCollector(meta, time.Now, sinks...)
}

func newCollector(meta Meta, now func() time.Time, sinks ...Sink) *Collector {
	return &Collector{
		meta:    meta,
		sinks:   sinks,
		now:     now,
		started: now(),
	}
}

func (c *Collector) Meta() Meta {
	return c.meta
}

func (c *Collector) LogStepPass(msg string) {
	c.log(db.StepPass, msg)
}

func (c *Collector) LogStepFail(msg string) {
	c.log(db.StepFail, msg)
}

func (c *Collector) LogStepInfo(msg string) {
	c.log(db.StepInfo, msg)
}

// Fail records err as a failing step.
func (c *Collector) Fail(err error) {
	c.log(db.StepFail, err.Error())
}

func (c *Collector) log(status, msg string) {
	c.mu.Lock()
	if c.finished != nil {
		c.mu.Unlock()
		return
	}
	step := Step{
		Sequence: len(c.steps),
		Status:   status,
		Message:  msg,
		Time:     c.now(),
	}
	c.steps = append(c.steps, step)
	if status == db.StepFail {
		if !c.failed {
			c.errMsg = msg
		}
		c.failed = true
	}
	c.mu.Unlock()

	for _, sink := range c.sinks {
		sink.OnStep(c.meta, step)
	}
}

// Failed reports whether a failing step was logged so far.
func (c *Collector) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Finish closes the case. A non-nil err is recorded as a last failing step.
// The result is handed to every sink; sink errors are returned joined.
func (c *Collector) Finish(err error) (Result, error) {
	if err != nil {
		c.Fail(err)
	}
	c.mu.Lock()
	if c.finished != nil {
		result := *c.finished
		c.mu.Unlock()
		return result, nil
	}
	result := Result{
		Meta:       c.meta,
		Status:     db.StatusPassed,
		Steps:      append([]Step(nil), c.steps...),
		StartedAt:  c.started,
		FinishedAt: c.now(),
	}
	if c.failed {
		result.Status = db.StatusFailed
		result.Error = c.errMsg
	}
	c.finished = &result
	c.mu.Unlock()

	return result, dispatch(c.sinks, result)
}

// Skip closes a case which never ran.
func Skip(meta Meta, reason string, sinks ...Sink) (Result, error) {
	now := time.Now()
	result := Result{
		Meta:       meta,
		Status:     db.StatusSkipped,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	}
	return result, dispatch(sinks, result)
}

// Result returns the outcome so far, or the final one once finished.
func (c *Collector) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished != nil {
		return *c.finished
	}
	result := Result{
		Meta:      c.meta,
		Status:    db.StatusRunning,
		Steps:     append([]Step(nil), c.steps...),
		StartedAt: c.started,
	}
	if c.failed {
		result.Status = db.StatusFailed
		result.Error = c.errMsg
	}
	return result
}

func dispatch(sinks []Sink, result Result) error {
	var failures []error
	for _, sink := range sinks {
		if err := sink.OnResult(result); err != nil {
			failures = append(failures, err)
		}
	}
	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	default:
		return errors.Wrap(failures[0], fmt.Sprintf("%d sinks failed", len(failures)))
	}
}

// Elapsed renders d for step messages, e.g. "1 second 250 milliseconds".
func Elapsed(d time.Duration) string {
	return durafmt.Parse(d).LimitFirstN(2).String()
}
