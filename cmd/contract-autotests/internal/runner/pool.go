package runner

import (
	"context"
	"sync"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
)

type workerRequest struct {
	ctx        context.Context
	job        job
	resultChan chan<- collector.Result
}

// workerPool executes jobs on a fixed number of goroutines. Jobs are handed
// over through an unbuffered channel, so they start in submission order.
type workerPool struct {
	execute     func(context.Context, job) collector.Result
	requestChan chan workerRequest
	wg          sync.WaitGroup
}

func newWorkerPool(workerCount uint, execute func(context.Context, job) collector.Result) *workerPool {
	pool := &workerPool{
		execute:     execute,
		requestChan: make(chan workerRequest),
	}
	for i := uint(0); i < workerCount; i++ {
		pool.wg.Add(1)
		go pool.work()
	}
	return pool
}

func (p *workerPool) work() {
	defer p.wg.Done()
	for request := range p.requestChan {
		request.resultChan <- p.execute(request.ctx, request.job)
	}
}

// submit blocks until a worker picks the job up. resultChan must be able to
// buffer the result.
func (p *workerPool) submit(ctx context.Context, j job, resultChan chan<- collector.Result) error {
	select {
	case p.requestChan <- workerRequest{ctx, j, resultChan}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *workerPool) close() {
	close(p.requestChan)
	p.wg.Wait()
}
