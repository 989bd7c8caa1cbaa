package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"floatflow/logger"
)

// Pool executes independent per-item lookups with bounded concurrency.
// It does not interpret results and guarantees nothing about their order;
// filtering and sorting are the caller's job.
type Pool struct {
	workers          int
	progressInterval time.Duration
	log              *logger.Log
}

// NewPool returns a pool with the given worker count. A non-positive count
// falls back to a single worker.
func NewPool(workers int, progressInterval time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if progressInterval <= 0 {
		progressInterval = 5 * time.Second
	}
	return &Pool{
		workers:          workers,
		progressInterval: progressInterval,
		log:              logger.GetLogger(),
	}
}

// Workers exposes the pool's concurrency bound.
func (p *Pool) Workers() int {
	return p.workers
}

// Run invokes fn once per item across the pool's workers and collects every
// result. All submitted items are drained; a batch is never cancelled
// mid-run, so fn must bound its own blocking via the supplied context.
// Completion progress is logged periodically for observability.
func Run[T, R any](ctx context.Context, p *Pool, stage string, items []T, fn func(context.Context, T) R) []R {
	log := p.log.WithComponent("runner").WithFields(logger.Fields{
		"stage":   stage,
		"items":   len(items),
		"workers": p.workers,
	})

	if len(items) == 0 {
		return nil
	}

	log.Info("starting batch")
	start := time.Now()

	jobs := make(chan T)
	results := make(chan R, len(items))

	var completed int64
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- fn(ctx, item)
				atomic.AddInt64(&completed, 1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.WithFields(logger.Fields{
					"completed": atomic.LoadInt64(&completed),
				}).Info("batch progress")
			}
		}
	}()

	for _, item := range items {
		jobs <- item
	}
	close(jobs)

	wg.Wait()
	close(done)
	close(results)

	out := make([]R, 0, len(items))
	for r := range results {
		out = append(out, r)
	}

	duration := time.Since(start)
	logger.LogPerformanceEntry(log, "runner", stage, duration, logger.Fields{
		"completed": len(out),
	})
	p.log.LogMetric("runner", "batch_items_completed", int64(len(out)), logger.Fields{
		"stage": stage,
	})

	return out
}
