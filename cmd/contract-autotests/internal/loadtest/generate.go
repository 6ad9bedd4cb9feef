package loadtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/pkg/errors"
)

// Stats counts the requests of a load test.
type Stats struct {
	Batches  int64
	Requests int64
	Failed   int64
}

// GenerateLoad sends pre-generated batches of requests to the node, one
// batch every batch interval, until the test duration elapsed or ctx is
// done. Progress is written to out.
func GenerateLoad(ctx context.Context, cfg *Config, out io.Writer) (Stats, error) {
	if cfg.NodeURL == "" {
		return Stats{}, errors.New("node url is required")
	}
	if cfg.BatchInterval <= 0 {
		return Stats{}, errors.Errorf("batch interval must be positive, got %v", cfg.BatchInterval)
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return Stats{}, err
	}

	numBatches := int(cfg.TestDuration / cfg.BatchInterval)
	batchSize := int(float64(cfg.RequestsPerSecond) * cfg.BatchInterval.Seconds())
	if batchSize < 1 {
		batchSize = 1
	}
	requestBatches := make([][]jrpc2.Spec, 0, numBatches)
	for i := 0; i < numBatches; i++ {
		batch := make([]jrpc2.Spec, 0, batchSize)
		for j := 0; j < batchSize; j++ {
			spec, err := generator.GenerateSpec()
			if err != nil {
				return Stats{}, errors.Wrap(err, "could not generate spec")
			}
			batch = append(batch, spec)
		}
		requestBatches = append(requestBatches, batch)
	}

	client := jrpc2.NewClient(jhttp.NewChannel(cfg.NodeURL, nil), nil)
	defer client.Close()

	fmt.Fprintf(out, "Generating approximately %d requests per second for %v\n", cfg.RequestsPerSecond, cfg.TestDuration)
	fmt.Fprintf(out, "Sending %d batches of %d requests each, every %v\n", numBatches, batchSize, cfg.BatchInterval)

	var stats Stats
	var wg sync.WaitGroup
	ticker := time.NewTicker(cfg.BatchInterval)
	defer ticker.Stop()
	startTime := time.Now()
loop:
	for _, batch := range requestBatches {
		wg.Add(1)
		go func(batch []jrpc2.Spec) {
			defer wg.Done()
			atomic.AddInt64(&stats.Batches, 1)
			atomic.AddInt64(&stats.Requests, int64(len(batch)))
			responses, err := client.Batch(ctx, batch)
			if err != nil {
				atomic.AddInt64(&stats.Failed, int64(len(batch)))
				return
			}
			for _, response := range responses {
				if response.Error() != nil {
					atomic.AddInt64(&stats.Failed, 1)
				}
			}
		}(batch)
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}
	wg.Wait()

	fmt.Fprintf(out, "Sent %d requests in %d batches over %v, %d failed\n",
		stats.Requests, stats.Batches, time.Since(startTime).Round(time.Millisecond), stats.Failed)
	return stats, nil
}
