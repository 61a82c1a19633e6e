package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hooplab/passport/internal/adapters/mq/queue"
	"github.com/hooplab/passport/pkg/logger"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

// recordingGenerator collects processed jobs and can be scripted to fail.
type recordingGenerator struct {
	mu      sync.Mutex
	jobs    []queue.Job
	failFor map[string]error
	seen    chan string
}

func newRecordingGenerator() *recordingGenerator {
	return &recordingGenerator{
		failFor: make(map[string]error),
		seen:    make(chan string, 64),
	}
}

func (g *recordingGenerator) Process(_ context.Context, job queue.Job) error {
	g.mu.Lock()
	g.jobs = append(g.jobs, job)
	g.mu.Unlock()
	g.seen <- job.ReportID
	if err, ok := g.failFor[job.ReportID]; ok {
		return err
	}
	return nil
}

func (g *recordingGenerator) processed() []queue.Job {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]queue.Job(nil), g.jobs...)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("processed %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for job %q", want)
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a single worker on a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		gen := newRecordingGenerator()

		Convey("Queued jobs reach the generator", func() {
			w := NewWorker(q, gen)
			go w.Run(ctx)

			So(q.Enqueue(ctx, queue.Job{ReportID: "r1", Fingerprint: "fp-1"}), ShouldBeTrue)
			waitFor(t, gen.seen, "r1")

			jobs := gen.processed()
			So(len(jobs), ShouldEqual, 1)
			So(jobs[0].Fingerprint, ShouldEqual, "fp-1")

			So(w.Shutdown(ctx), ShouldBeNil)
		})

		Convey("A failing job does not stop the worker", func() {
			gen.failFor["bad"] = errors.New("generation failed")
			w := NewWorker(q, gen)
			go w.Run(ctx)

			So(q.Enqueue(ctx, queue.Job{ReportID: "bad"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{ReportID: "good"}), ShouldBeTrue)
			waitFor(t, gen.seen, "bad")
			waitFor(t, gen.seen, "good")

			So(w.Shutdown(ctx), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		gen := newRecordingGenerator()

		Convey("All queued jobs get processed across workers", func() {
			p := NewPool(4, q, gen)
			p.Start(ctx)

			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, queue.Job{ReportID: "r"}), ShouldBeTrue)
			}
			for i := 0; i < 20; i++ {
				select {
				case <-gen.seen:
				case <-time.After(2 * time.Second):
					t.Fatal("timed out draining jobs")
				}
			}
			So(len(gen.processed()), ShouldEqual, 20)

			So(p.Shutdown(ctx), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
		})

		Convey("Shutdown drains jobs that were already queued", func() {
			for i := 0; i < 5; i++ {
				So(q.Enqueue(ctx, queue.Job{ReportID: "queued"}), ShouldBeTrue)
			}

			p := NewPool(2, q, gen)
			p.Start(ctx)
			So(p.Shutdown(ctx), ShouldBeNil)
			So(len(gen.processed()), ShouldEqual, 5)
		})
	})
}
