package network

import (
	"context"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/util"
)

var (
	ErrRequestExceededProcessingLimitThreshold = &jrpc2.Error{
		Code:    jrpc2.DeadlineExceeded,
		Message: "request processing exceeded its time limit",
	}
	ErrFailToProcessDueToInternalIssue = &jrpc2.Error{
		Code:    jrpc2.InternalError,
		Message: "request failed due to an internal issue",
	}
)

// counter is the subset of prometheus.Counter the duration limiters use.
type counter interface {
	Inc()
}

// DurationLimits configures a request duration limiter. Requests running
// past Warning are logged and counted; requests running past Limit are
// abandoned. A zero Limit disables both checks.
type DurationLimits struct {
	Warning         time.Duration
	Limit           time.Duration
	WarningCounter  counter
	TimeoutsCounter counter
	Logger          *log.Entry
}

type outcome struct {
	result interface{}
	err    error
}

// run calls fn on its own goroutine and waits for it within the limits.
// timedOut reports whether the limit fired first.
func (d DurationLimits) run(ctx context.Context, what string, fn func(context.Context) (interface{}, error)) (result interface{}, timedOut bool, err error) {
	if d.Limit <= 0 {
		result, err = fn(ctx)
		return result, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.Limit)
	defer cancel()

	done := make(chan outcome, 1)
	group := util.RecoverablePanicGroup.Log(d.Logger)
	go func() {
		var o outcome
		o.err = group.Run(func() error {
			var err error
			o.result, err = fn(ctx)
			return err
		})
		done <- o
	}()

	started := time.Now()
	limit := time.NewTimer(d.Limit)
	defer limit.Stop()
	select {
	case o := <-done:
		if d.Warning > 0 && time.Since(started) > d.Warning {
			if d.WarningCounter != nil {
				d.WarningCounter.Inc()
			}
			if d.Logger != nil {
				d.Logger.Infof("%s took longer than the warning threshold of %v", what, d.Warning)
			}
		}
		return o.result, false, o.err
	case <-limit.C:
		if d.TimeoutsCounter != nil {
			d.TimeoutsCounter.Inc()
		}
		if d.Logger != nil {
			d.Logger.Infof("%s exceeded the limit threshold of %v", what, d.Limit)
		}
		return nil, true, nil
	}
}

// JrpcDurationLimiter bounds the execution time of a JSON RPC method.
type JrpcDurationLimiter struct {
	DurationLimits
	downstream jrpc2.Handler
}

func MakeJrpcRequestDurationLimiter(downstream jrpc2.Handler, limits DurationLimits) *JrpcDurationLimiter {
	return &JrpcDurationLimiter{DurationLimits: limits, downstream: downstream}
}

func (l *JrpcDurationLimiter) Handle(ctx context.Context, req *jrpc2.Request) (interface{}, error) {
	result, timedOut, err := l.run(ctx, req.Method(), func(ctx context.Context) (interface{}, error) {
		return l.downstream(ctx, req)
	})
	if timedOut {
		return nil, ErrRequestExceededProcessingLimitThreshold
	}
	if _, ok := err.(*util.PanicError); ok {
		return nil, ErrFailToProcessDueToInternalIssue
	}
	return result, err
}

// HTTPDurationLimiter bounds the execution time of an http handler. The
// response is buffered so that a late handler cannot write into a request
// which was already answered with 504.
type HTTPDurationLimiter struct {
	DurationLimits
	downstream http.Handler
}

func MakeHTTPRequestDurationLimiter(downstream http.Handler, limits DurationLimits) *HTTPDurationLimiter {
	return &HTTPDurationLimiter{DurationLimits: limits, downstream: downstream}
}

func (l *HTTPDurationLimiter) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if l.Limit <= 0 {
		l.downstream.ServeHTTP(res, req)
		return
	}
	buffer := &bufferedResponseWriter{header: http.Header{}}
	_, timedOut, err := l.run(req.Context(), req.URL.Path, func(ctx context.Context) (interface{}, error) {
		l.downstream.ServeHTTP(buffer, req.WithContext(ctx))
		return nil, nil
	})
	switch {
	case timedOut:
		res.WriteHeader(http.StatusGatewayTimeout)
	case err != nil:
		res.WriteHeader(http.StatusInternalServerError)
	default:
		buffer.writeTo(res)
	}
}

type bufferedResponseWriter struct {
	header     http.Header
	body       []byte
	statusCode int
}

func (w *bufferedResponseWriter) Header() http.Header {
	return w.header
}

func (w *bufferedResponseWriter) Write(buf []byte) (int, error) {
	w.body = append(w.body, buf...)
	return len(buf), nil
}

func (w *bufferedResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

func (w *bufferedResponseWriter) writeTo(res http.ResponseWriter) {
	for k, v := range w.header {
		res.Header()[k] = v
	}
	if w.statusCode != 0 {
		res.WriteHeader(w.statusCode)
	}
	if len(w.body) > 0 {
		res.Write(w.body) //nolint:errcheck
	}
}
