// Package prober checks a proxy list concurrently.
package prober

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xscraper/pkg/logger"
	"xscraper/pkg/proxy"
	"xscraper/pkg/ratelimit"
)

// Job is one proxy to check.
type Job struct {
	Entry  proxy.Entry
	Scheme string
}

// Result is the outcome of one check.
type Result struct {
	Job     Job
	Healthy bool
	Error   error
	Latency time.Duration
}

// WorkerPool runs probes on a fixed number of workers.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	prober      proxy.Prober
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a pool. A nil limiter means no pacing.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	prober proxy.Prober,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger().WithField("component", "prober")
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		prober:      prober,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting probe workers", logger.Fields{"num_workers": wp.numWorkers})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight probes and closes Results.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Abort cancels in-flight probes. Stop must still be called.
func (wp *WorkerPool) Abort() {
	wp.cancel()
}

// Submit queues a job. It fails once the pool is cancelled.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("probe pool is shutting down")
	}
}

// Results must be drained concurrently with Submit.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			// keep draining so Stop does not block on a full queue
			continue
		}
		result := wp.processJob(job, id)
		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	result := Result{Job: job}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		return result
	}

	start := time.Now()
	err := wp.prober.Probe(wp.ctx, job.Entry, job.Scheme)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err
		wp.logger.DebugWithFields("Proxy probe failed", logger.Fields{
			"worker_id": workerID,
			"proxy":     job.Entry.Address(),
			"error":     err.Error(),
		})
		return result
	}
	result.Healthy = true
	return result
}

// CheckAll probes every entry supporting scheme and returns the results in
// input order.
func CheckAll(ctx context.Context, entries []proxy.Entry, scheme string, workers int, p proxy.Prober, limiter ratelimit.Limiter, log logger.Logger) []Result {
	candidates := proxy.Filter(entries, scheme)
	pool := NewWorkerPool(ctx, workers, p, limiter, log)
	pool.Start()

	byAddr := make(map[string]Result, len(candidates))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			byAddr[r.Job.Entry.Address()] = r
		}
	}()

	for _, e := range candidates {
		if err := pool.Submit(Job{Entry: e, Scheme: scheme}); err != nil {
			break
		}
	}
	pool.Stop()
	<-done

	out := make([]Result, 0, len(candidates))
	for _, e := range candidates {
		r, ok := byAddr[e.Address()]
		if !ok {
			r = Result{Job: Job{Entry: e, Scheme: scheme}, Error: context.Canceled}
		}
		out = append(out, r)
	}
	return out
}
