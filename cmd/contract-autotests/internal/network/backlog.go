package network

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/creachadair/jrpc2"
	"github.com/stellar/go/support/log"
)

// CodeBacklogFull is returned to JSON RPC callers when a method has too many
// requests in flight.
const CodeBacklogFull = jrpc2.Code(-32003)

// gauge is the subset of prometheus.Gauge the backlog limiters update.
type gauge interface {
	Inc()
	Dec()
}

// backlog counts the requests in flight and refuses new ones past limit. A
// limit of 0 disables the check.
type backlog struct {
	name    string
	limit   uint64
	pending uint64
	full    uint32
	gauge   gauge
	logger  *log.Entry
}

func (b *backlog) enter() bool {
	pending := atomic.AddUint64(&b.pending, 1)
	if b.limit > 0 && pending > b.limit {
		atomic.AddUint64(&b.pending, ^uint64(0))
		// one log line per saturation period
		if atomic.CompareAndSwapUint32(&b.full, 0, 1) && b.logger != nil {
			b.logger.Infof("%s backlog reached its limit of %d pending requests", b.name, b.limit)
		}
		return false
	}
	if b.gauge != nil {
		b.gauge.Inc()
	}
	return true
}

func (b *backlog) leave() {
	if b.gauge != nil {
		b.gauge.Dec()
	}
	if atomic.AddUint64(&b.pending, ^uint64(0)) < b.limit {
		atomic.StoreUint32(&b.full, 0)
	}
}

// HTTPBacklogLimiter answers 503 once limit requests are being served.
type HTTPBacklogLimiter struct {
	backlog
	downstream http.Handler
}

func MakeHTTPBacklogQueueLimiter(downstream http.Handler, g gauge, limit uint64, logger *log.Entry) *HTTPBacklogLimiter {
	return &HTTPBacklogLimiter{
		backlog:    backlog{name: "http", limit: limit, gauge: g, logger: logger},
		downstream: downstream,
	}
}

func (l *HTTPBacklogLimiter) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if !l.enter() {
		res.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer l.leave()
	l.downstream.ServeHTTP(res, req)
}

// JrpcBacklogLimiter fails a method call with CodeBacklogFull once limit
// calls of that method are in flight.
type JrpcBacklogLimiter struct {
	backlog
	downstream jrpc2.Handler
}

func MakeJrpcBacklogQueueLimiter(method string, downstream jrpc2.Handler, g gauge, limit uint64, logger *log.Entry) *JrpcBacklogLimiter {
	return &JrpcBacklogLimiter{
		backlog:    backlog{name: method, limit: limit, gauge: g, logger: logger},
		downstream: downstream,
	}
}

func (l *JrpcBacklogLimiter) Handle(ctx context.Context, req *jrpc2.Request) (interface{}, error) {
	if !l.enter() {
		return nil, &jrpc2.Error{
			Code:    CodeBacklogFull,
			Message: "too many pending " + req.Method() + " requests",
		}
	}
	defer l.leave()
	return l.downstream(ctx, req)
}
