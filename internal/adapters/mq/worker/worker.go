package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rinkxg/internal/adapters/mq/queue"
	"github.com/okian/rinkxg/pkg/logger"
	"github.com/okian/rinkxg/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor handles a single job.
type Processor interface {
	Process(ctx context.Context, j queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j queue.Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, j queue.Job) error { return f(ctx, j) } //nolint:gocritic // hugeParam

// Queue defines how workers receive jobs.
type Queue interface {
	Jobs() <-chan queue.Job
}

// dequeuer is implemented by queues that track consumption.
type dequeuer interface {
	Dequeued()
}

// Stats counts finished jobs.
type Stats struct {
	Processed int64
	Failed    int64
}

// InMemoryWorker pulls jobs until the queue closes, ctx ends or the worker
// is shut down.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	return w
}

// Run processes jobs until the queue is drained and closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Jobs()
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
			if d, ok := w.queue.(dequeuer); ok {
				d.Dequeued()
			}
			w.process(ctx, j)
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.processor.Process(ctx, j); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		w.logger.Error(ctx, "plot job failed",
			logger.String("worker", w.name),
			logger.String("run_id", j.RunID),
			logger.String("job", j.Key()),
			logger.Error(err),
		)
		return
	}
	w.processed.Add(1)
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	failed    atomic.Int64
	wg        sync.WaitGroup
	logger    logger.Logger
}

// NewPool creates count workers. A count below 1 uses runtime.NumCPU().
func NewPool(count int, q Queue, p Processor, opts ...PoolOption) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	pool := &Pool{workers: make([]*InMemoryWorker, count), queue: q}
	for _, opt := range opts {
		opt(pool)
	}
	if pool.logger == nil {
		pool.logger = logger.Get().Named("worker-pool")
	}

	for i := range pool.workers {
		w := NewInMemoryWorker(q, p, WithName("worker-"+strconv.Itoa(i)), WithLogger(pool.logger))
		w.processed = &pool.processed
		w.failed = &pool.failed
		pool.workers[i] = w
	}
	metrics.UpdateWorkerCount(count)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned, normally after the queue was
// closed and drained.
func (p *Pool) Wait() Stats {
	p.wg.Wait()
	return p.Stats()
}

// Stats returns the job counts so far.
func (p *Pool) Stats() Stats {
	return Stats{Processed: p.processed.Load(), Failed: p.failed.Load()}
}

// Shutdown closes the queue, then stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
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
