package queue

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a bounded in-memory queue", t, func() {
		ctx := context.Background()

		Convey("Jobs flow through in order", func() {
			q := NewInMemoryQueue(WithCapacity(8))
			defer func() { _ = q.Close() }()

			So(q.Enqueue(ctx, Job{ReportID: "r1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, Job{ReportID: "r2"}), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			So((<-out).ReportID, ShouldEqual, "r1")
			So((<-out).ReportID, ShouldEqual, "r2")
		})

		Convey("A full queue rejects instead of blocking", func() {
			q := NewInMemoryQueue(WithCapacity(2))
			defer func() { _ = q.Close() }()

			So(q.Enqueue(ctx, Job{ReportID: "r1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, Job{ReportID: "r2"}), ShouldBeTrue)
			So(q.Enqueue(ctx, Job{ReportID: "r3"}), ShouldBeFalse)
		})

		Convey("A closed queue rejects new jobs and drains old ones", func() {
			q := NewInMemoryQueue(WithCapacity(8))
			So(q.Enqueue(ctx, Job{ReportID: "r1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, Job{ReportID: "r2"}), ShouldBeFalse)

			out := q.Dequeue(ctx)
			So((<-out).ReportID, ShouldEqual, "r1")

			_, open := <-out
			So(open, ShouldBeFalse)
		})

		Convey("Closing twice is safe", func() {
			q := NewInMemoryQueue()
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
		})

		Convey("Dequeue stops when the context ends", func() {
			q := NewInMemoryQueue(WithCapacity(8))
			defer func() { _ = q.Close() }()

			cancelCtx, cancel := context.WithCancel(ctx)
			out := q.Dequeue(cancelCtx)
			So(q.Enqueue(ctx, Job{ReportID: "r1"}), ShouldBeTrue)
			So((<-out).ReportID, ShouldEqual, "r1")

			cancel()
			So(q.Enqueue(ctx, Job{ReportID: "r2"}), ShouldBeTrue)

			select {
			case _, open := <-out:
				So(open, ShouldBeFalse)
			case <-time.After(time.Second):
				t.Fatal("dequeue channel did not close after cancellation")
			}
		})
	})
}
