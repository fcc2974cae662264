package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/rinkxg/internal/adapters/mq/queue"
	"github.com/okian/rinkxg/internal/adapters/mq/worker"
	"github.com/okian/rinkxg/internal/domain/types"
	"github.com/okian/rinkxg/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (r *recorder) Process(_ context.Context, j queue.Job) error { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, j.PlayerID)
	if r.fail[j.PlayerID] {
		return errors.New("render failed")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func fill(q *queue.InMemoryQueue, n int) {
	for i := 0; i < n; i++ {
		So(q.Put(context.Background(), queue.Job{PlayerID: fmt.Sprint(i), StrengthState: "ev", Mode: types.ModeIndividual}), ShouldBeNil)
	}
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := &recorder{fail: map[string]bool{"3": true, "7": true}}
		pool := worker.NewPool(3, q, rec, worker.WithPoolLogger(logger.Nop()))
		So(pool.Size(), ShouldEqual, 3)

		Convey("When the queue is filled, closed and drained", func() {
			pool.Start(ctx)
			fill(q, 20)
			So(q.Close(), ShouldBeNil)
			stats := pool.Wait()

			Convey("Then every job ran and failures are counted", func() {
				So(rec.count(), ShouldEqual, 20)
				So(stats, ShouldResemble, worker.Stats{Processed: 18, Failed: 2})
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the pool is shut down", func() {
			pool.Start(ctx)
			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then the queue is closed and workers return", func() {
				So(q.IsClosed(), ShouldBeTrue)
				done := make(chan struct{})
				go func() { pool.Wait(); close(done) }()
				select {
				case <-done:
				case <-time.After(time.Second):
					So("pool still running", ShouldBeEmpty)
				}
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			pool.Start(cctx)
			cancel()

			Convey("Then Wait returns without closing the queue", func() {
				pool.Wait()
				So(q.IsClosed(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a zero worker count", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, worker.ProcessorFunc(func(context.Context, queue.Job) error { return nil }), worker.WithPoolLogger(logger.Nop()))

		Convey("Then one worker per CPU is used", func() {
			So(pool.Size(), ShouldBeGreaterThan, 0)
		})
	})
}

func TestWorkerShutdownTimeout(t *testing.T) {
	Convey("Given a worker stuck on a slow job", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		release := make(chan struct{})
		w := worker.NewInMemoryWorker(q, worker.ProcessorFunc(func(context.Context, queue.Job) error {
			<-release
			return nil
		}), worker.WithName("slow"), worker.WithLogger(logger.Nop()))

		go w.Run(context.Background())
		So(q.Put(context.Background(), queue.Job{PlayerID: "1"}), ShouldBeNil)
		time.Sleep(10 * time.Millisecond)

		Convey("Then Shutdown honours the deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(w.Shutdown(ctx), ShouldNotBeNil)

			close(release)
			So(w.Shutdown(context.Background()), ShouldBeNil)
		})
	})
}
