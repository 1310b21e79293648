// Package worker runs derivation jobs from a queue on a fixed pool of
// goroutines and hands results back in input order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/facewin/internal/adapters/mq/queue"
	"github.com/okian/facewin/internal/domain/derive"
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/pkg/logger"
	"github.com/okian/facewin/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Result is the outcome of one job. Err is set when the recording had to be
// skipped.
type Result struct {
	Job       queue.Job
	Recording model.Recording
	Report    derive.Report
	Err       error
}

// Processor turns a job into a result.
type Processor interface {
	Process(ctx context.Context, j queue.Job) Result
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j queue.Job) Result

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, j queue.Job) Result { return f(ctx, j) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue drains.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	proc    Processor
	results chan<- Result
	name    string

	// Shutdown control
	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, proc Processor, results chan<- Result, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		proc:     proc,
		results:  results,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}

			res := w.proc.Process(ctx, j)
			if res.Err != nil {
				w.logger.Debug(ctx, "job failed",
					logger.String("worker", w.name),
					logger.String("path", j.Path),
					logger.Error(res.Err),
				)
			}
			select {
			case w.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers sharing one queue and one result channel.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	results chan Result
	metrics *metrics.Manager
	logger  logger.Logger
	wg      sync.WaitGroup
}

// NewPool creates a worker pool. A count below 1 uses one worker per CPU.
func NewPool(workerCount int, q Queue, proc Processor, m *metrics.Manager) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		results: make(chan Result, workerCount),
		metrics: m,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			proc,
			pool.results,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	m.SetWorkers(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Results returns the channel results are delivered on. It is closed once
// every worker has returned.
func (p *Pool) Results() <-chan Result { return p.results }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Shutdown closes the queue and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Debug(ctx, "queue close", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run derives every job with workerCount workers and returns the results
// ordered by Job.Seq, independent of scheduling. Cancelling ctx shuts the
// pool down and returns ctx.Err().
func Run(ctx context.Context, workerCount int, jobs []queue.Job, proc Processor, m *metrics.Manager) ([]Result, error) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs) + 1))
	for _, j := range jobs {
		if !q.Enqueue(ctx, j) {
			return nil, fmt.Errorf("enqueue %s: %w", j.Path, ctx.Err())
		}
	}
	_ = q.Close()

	pool := NewPool(workerCount, q, proc, m)
	pool.Start(ctx)

	out := make([]Result, 0, len(jobs))
	results := pool.Results()
	for results != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			out = append(out, res)
		case <-ctx.Done():
			// Bounded wait for workers still inside a job.
			if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
				pool.logger.Warn(ctx, "pool shutdown", logger.Error(err))
			}
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Job.Seq < out[j].Job.Seq })
	return out, nil
}
