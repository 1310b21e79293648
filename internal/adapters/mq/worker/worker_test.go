package worker_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/facewin/internal/adapters/mq/queue"
	"github.com/okian/facewin/internal/adapters/mq/worker"
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/pkg/logger"
	"github.com/okian/facewin/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

var errOdd = errors.New("odd job")

// sleepy returns results out of submission order when run concurrently.
func sleepy(calls *int64) worker.ProcessorFunc {
	return func(ctx context.Context, j queue.Job) worker.Result {
		atomic.AddInt64(calls, 1)
		time.Sleep(time.Duration(10-j.Seq%10) * time.Millisecond)
		res := worker.Result{Job: j, Recording: model.Recording{Key: j.Key, Source: j.Path}}
		if j.Seq%2 == 1 {
			res.Err = errOdd
		}
		return res
	}
}

func jobs(n int) []queue.Job {
	out := make([]queue.Job, n)
	for i := range out {
		out[i] = queue.Job{Seq: i, Path: "rec.csv", Key: model.Key{Subject: "S", Condition: "0"}}
	}
	return out
}

func TestRun(t *testing.T) {
	convey.Convey("Given a processor with uneven latency", t, func() {
		_ = logger.Init(logger.WithWriter(io.Discard))
		var calls int64

		convey.Convey("When twenty jobs run on four workers", func() {
			m := metrics.NewManager()
			results, err := worker.Run(context.Background(), 4, jobs(20), sleepy(&calls), m)

			convey.Convey("Then every job yields one result in input order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(atomic.LoadInt64(&calls), convey.ShouldEqual, 20)
				convey.So(len(results), convey.ShouldEqual, 20)
				for i, r := range results {
					convey.So(r.Job.Seq, convey.ShouldEqual, i)
				}
			})

			convey.Convey("Then per-job failures are carried, not fatal", func() {
				convey.So(results[0].Err, convey.ShouldBeNil)
				convey.So(errors.Is(results[1].Err, errOdd), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker count is not positive", func() {
			q := queue.NewInMemoryQueue()
			pool := worker.NewPool(0, q, sleepy(&calls), nil)
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)

			pool.Start(context.Background())
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			_, open := <-pool.Results()
			convey.So(open, convey.ShouldBeFalse)
		})

		convey.Convey("When the context is cancelled mid-run", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			started := make(chan struct{}, 8)
			blocking := worker.ProcessorFunc(func(ctx context.Context, j queue.Job) worker.Result {
				started <- struct{}{}
				<-ctx.Done()
				return worker.Result{Job: j, Err: ctx.Err()}
			})

			done := make(chan error, 1)
			go func() {
				_, err := worker.Run(ctx, 2, jobs(6), blocking, nil)
				done <- err
			}()
			<-started
			cancel()

			convey.Convey("Then the pool stops and the cancellation is returned", func() {
				select {
				case err := <-done:
					convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				case <-time.After(2 * time.Second):
					convey.So("timeout", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := worker.Run(ctx, 2, jobs(3), sleepy(&calls), nil)
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a single worker", t, func() {
		_ = logger.Init(logger.WithWriter(io.Discard))
		var calls int64
		q := queue.NewInMemoryQueue()
		results := make(chan worker.Result, 4)
		w := worker.NewInMemoryWorker(q, sleepy(&calls), results, worker.WithName("w-test"), worker.WithLogger(logger.Named("test")))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is queued", func() {
			convey.So(q.Enqueue(ctx, queue.Job{Seq: 2, Path: "x.csv"}), convey.ShouldBeTrue)

			convey.Convey("Then its result is delivered", func() {
				select {
				case r := <-results:
					convey.So(r.Recording.Source, convey.ShouldEqual, "x.csv")
				case <-time.After(time.Second):
					convey.So("timeout", convey.ShouldBeEmpty)
				}
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When shut down twice", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
