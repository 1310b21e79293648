package queue_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/okian/facewin/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When it is filled", func() {
			So(q.Enqueue(ctx, queue.Job{Seq: 0, Path: "a.csv"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{Seq: 1, Path: "b.csv"}), ShouldBeTrue)

			Convey("Then further jobs are refused", func() {
				So(q.Enqueue(ctx, queue.Job{Seq: 2}), ShouldBeFalse)
			})

			Convey("Then closing still delivers queued jobs in order", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Enqueue(ctx, queue.Job{Seq: 3}), ShouldBeFalse)

				var got []string
				for j := range q.Dequeue(ctx) {
					got = append(got, j.Path)
				}
				So(got, ShouldResemble, []string{"a.csv", "b.csv"})
			})

			Convey("Then closing twice reports it", func() {
				So(q.Close(), ShouldBeNil)
				So(errors.Is(q.Close(), queue.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, queue.Job{}), ShouldBeFalse)
			So(q.Enqueue(ctx, queue.Job{Seq: 9}), ShouldBeTrue)
		})
	})

	Convey("Given several consumers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		for i := 0; i < 100; i++ {
			So(q.Enqueue(ctx, queue.Job{Seq: i}), ShouldBeTrue)
		}
		So(q.Close(), ShouldBeNil)

		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			got []int
		)
		for c := 0; c < 4; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range q.Dequeue(ctx) {
					mu.Lock()
					got = append(got, j.Seq)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then every job is delivered exactly once", func() {
			sort.Ints(got)
			So(len(got), ShouldEqual, 100)
			for i, s := range got {
				So(s, ShouldEqual, i)
			}
		})
	})
}
