// Package queue buffers plot jobs between the precompute planner and the
// workers that render them.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job is the payload flowing through the queue.
type Job = types.PlotJob

// Queue hands jobs from one producer side to many consumers.
type Queue interface {
	// Put blocks until the job is buffered, ctx ends or the queue closes.
	Put(ctx context.Context, j Job) error

	// TryPut buffers the job only if a slot is free.
	TryPut(j Job) error

	// Jobs returns the receive side. It is closed after Close once drained.
	Jobs() <-chan Job

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	// mu guards closed against concurrent sends on a closed channel.
	mu     sync.RWMutex
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity, done: make(chan struct{})}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

// Put implements Queue.
func (q *InMemoryQueue) Put(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() { metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds())) }()

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return q.reject("closed", ErrClosed)
	}

	select {
	case q.jobs <- j:
		q.accepted()
		return nil
	case <-ctx.Done():
		return q.reject("context_cancelled", ctx.Err())
	case <-q.done:
		return q.reject("closed", ErrClosed)
	}
}

// TryPut implements Queue.
func (q *InMemoryQueue) TryPut(j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return q.reject("closed", ErrClosed)
	}

	select {
	case q.jobs <- j:
		q.accepted()
		return nil
	default:
		return q.reject("queue_full", ErrFull)
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	q.observe()
}

func (q *InMemoryQueue) reject(kind string, err error) error {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", kind)
	return err
}

// Jobs implements Queue. Receivers should call Dequeued after each job so
// the size gauges stay current.
func (q *InMemoryQueue) Jobs() <-chan Job { return q.jobs }

// Dequeued records that a consumer took a job.
func (q *InMemoryQueue) Dequeued() {
	metrics.RecordQueueDequeue()
	q.observe()
}

// Len returns the number of buffered jobs.
func (q *InMemoryQueue) Len() int {
	n := len(q.jobs)
	q.observe()
	return n
}

func (q *InMemoryQueue) observe() {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	metrics.UpdateQueueUtilization(float64(n) / float64(q.capacity))
}

// Close stops accepting jobs. Buffered jobs remain readable. A Put blocked on a
// full queue is released with ErrClosed before the channel closes.
func (q *InMemoryQueue) Close() error {
	q.doneOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
