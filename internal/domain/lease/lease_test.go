package lease

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLeaser(t *testing.T) {
	Convey("Given an in-memory leaser", t, func() {
		ctx := context.Background()
		clock := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
		l := NewInMemoryLeaser(
			WithTTL(time.Minute),
			WithClock(func() time.Time { return clock }),
		)

		Convey("The first acquirer wins, the second is refused", func() {
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeFalse)
			So(l.Size(), ShouldEqual, 1)
		})

		Convey("Different fingerprints do not contend", func() {
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
			So(l.TryAcquire(ctx, "fp-2"), ShouldBeTrue)
			So(l.Size(), ShouldEqual, 2)
		})

		Convey("Release frees the lease immediately", func() {
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
			l.Release(ctx, "fp-1")
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
		})

		Convey("An unreleased lease expires after the TTL", func() {
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeFalse)

			clock = clock.Add(time.Minute + time.Second)
			So(l.TryAcquire(ctx, "fp-1"), ShouldBeTrue)
		})

		Convey("Releasing an unheld fingerprint is a no-op", func() {
			l.Release(ctx, "never-acquired")
			So(l.Size(), ShouldEqual, 0)
		})

		Convey("Exactly one of many concurrent acquirers wins", func() {
			var wins int64
			var mu sync.Mutex
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if l.TryAcquire(ctx, "fp-contended") {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			So(wins, ShouldEqual, 1)
		})
	})
}
