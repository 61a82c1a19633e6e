package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hooplab/passport/internal/domain/content"
	"github.com/hooplab/passport/internal/domain/model"
	"github.com/hooplab/passport/internal/domain/prompt"
	"github.com/hooplab/passport/internal/domain/stats"
	"github.com/hooplab/passport/pkg/logger"
)

func init() {
	_ = logger.Init()
	_ = logger.SetLevelString("error")
}

func testPlayer() model.Player {
	return model.Player{
		ID:       "player-1",
		OwnerID:  "owner-1",
		Name:     "Jordan Miles",
		Grade:    "10",
		Position: "SG",
		Team:     "Central HS",
	}
}

func testGames() []model.PlayerGame {
	day := func(d int) time.Time {
		return time.Date(2024, 12, d, 0, 0, 0, 0, time.UTC)
	}
	return []model.PlayerGame{
		{ID: "g1", PlayerID: "player-1", GameDate: day(1), Opponent: "East", Minutes: 28, PTS: 12, REB: 6, AST: 4, TOV: 3, FGM: 5, FGA: 13, FTM: 2, FTA: 3},
		{ID: "g2", PlayerID: "player-1", GameDate: day(8), Opponent: "North", Minutes: 30, PTS: 14, REB: 7, AST: 5, TOV: 2, FGM: 6, FGA: 15, FTM: 2, FTA: 2},
		{ID: "g3", PlayerID: "player-1", GameDate: day(15), Opponent: "West", Minutes: 31, PTS: 17, REB: 5, AST: 5, TOV: 2, FGM: 7, FGA: 17, FTM: 3, FTA: 4},
	}
}

// fakeClient scripts one error per attempt, succeeding once the script runs
// out.
type fakeClient struct {
	script   []error
	attempts int
	result   Result
}

func (f *fakeClient) Generate(ctx context.Context, _ prompt.Request) (Result, error) {
	f.attempts++
	if f.attempts <= len(f.script) {
		return Result{}, f.script[f.attempts-1]
	}
	return f.result, nil
}

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

// capturingLogger records every log line with its fields.
type capturingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	msg    string
	fields map[string]interface{}
}

func (c *capturingLogger) record(msg string, fields []logger.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	c.entries = append(c.entries, logEntry{msg: msg, fields: m})
}

func (c *capturingLogger) Debug(_ context.Context, msg string, fields ...logger.Field) {
	c.record(msg, fields)
}
func (c *capturingLogger) Info(_ context.Context, msg string, fields ...logger.Field) {
	c.record(msg, fields)
}
func (c *capturingLogger) Warn(_ context.Context, msg string, fields ...logger.Field) {
	c.record(msg, fields)
}
func (c *capturingLogger) Error(_ context.Context, msg string, fields ...logger.Field) {
	c.record(msg, fields)
}
func (c *capturingLogger) Named(string) logger.Logger { return c }

func (c *capturingLogger) byMsg(msg string) []logEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logEntry
	for _, e := range c.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func TestRetryClient(t *testing.T) {
	Convey("Given a retry client with 3 attempts", t, func() {
		ctx := context.Background()
		req := prompt.Request{System: "sys", User: "{}", Version: prompt.Version}
		var waits []time.Duration

		Convey("Transient failures are retried until success", func() {
			fake := &fakeClient{
				script: []error{
					&HTTPError{StatusCode: 500, Body: "boom"},
					&HTTPError{StatusCode: 503, Body: "busy"},
				},
				result: Result{Text: "{}", Model: "m"},
			}
			rc := NewRetryClient(fake, WithMaxAttempts(3), WithSleep(noSleep(&waits)))

			res, err := rc.Generate(ctx, req)
			So(err, ShouldBeNil)
			So(res.Text, ShouldEqual, "{}")
			So(fake.attempts, ShouldEqual, 3)
			So(len(waits), ShouldEqual, 2)
		})

		Convey("Backoff doubles between retries, within jitter bounds", func() {
			fake := &fakeClient{
				script: []error{
					&HTTPError{StatusCode: 500},
					&HTTPError{StatusCode: 500},
				},
				result: Result{Text: "{}"},
			}
			rc := NewRetryClient(fake,
				WithMaxAttempts(3),
				WithBackoffBase(time.Second),
				WithSleep(noSleep(&waits)),
			)

			_, err := rc.Generate(ctx, req)
			So(err, ShouldBeNil)
			So(waits[0], ShouldBeBetweenOrEqual, 800*time.Millisecond, 1200*time.Millisecond)
			So(waits[1], ShouldBeBetweenOrEqual, 1600*time.Millisecond, 2400*time.Millisecond)
		})

		Convey("A Retry-After hint overrides the computed backoff", func() {
			fake := &fakeClient{
				script: []error{&HTTPError{StatusCode: 429, RetryAfter: 5 * time.Second}},
				result: Result{Text: "{}"},
			}
			rc := NewRetryClient(fake, WithMaxAttempts(3), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(ctx, req)
			So(err, ShouldBeNil)
			So(waits[0], ShouldBeBetweenOrEqual, 4*time.Second, 6*time.Second)
		})

		Convey("Non-retryable errors fail on the first attempt", func() {
			fake := &fakeClient{
				script: []error{
					&HTTPError{StatusCode: 400, Body: "bad request"},
					&HTTPError{StatusCode: 400, Body: "bad request"},
					&HTTPError{StatusCode: 400, Body: "bad request"},
				},
			}
			rc := NewRetryClient(fake, WithMaxAttempts(3), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(ctx, req)
			var httpErr *HTTPError
			So(errors.As(err, &httpErr), ShouldBeTrue)
			So(httpErr.StatusCode, ShouldEqual, 400)
			So(fake.attempts, ShouldEqual, 1)
			So(len(waits), ShouldEqual, 0)
		})

		Convey("Exhausting the budget returns the last error", func() {
			fake := &fakeClient{
				script: []error{
					&HTTPError{StatusCode: 500, Body: "one"},
					&HTTPError{StatusCode: 500, Body: "two"},
					&HTTPError{StatusCode: 500, Body: "three"},
				},
			}
			rc := NewRetryClient(fake, WithMaxAttempts(3), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(ctx, req)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "three")
			So(fake.attempts, ShouldEqual, 3)
		})

		Convey("Caller cancellation stops the loop", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			fake := &fakeClient{result: Result{Text: "{}"}}
			rc := NewRetryClient(fake, WithMaxAttempts(3), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(cancelled, req)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(fake.attempts, ShouldEqual, 0)
		})
	})
}

func TestAttemptLogging(t *testing.T) {
	Convey("Given a context carrying a report correlation id", t, func() {
		req := prompt.Request{System: "sys", User: "{}", Version: prompt.Version}
		ctx := WithCorrelationID(context.Background(), "corr-123")
		var waits []time.Duration

		Convey("Every attempt is logged with the correlation id", func() {
			log := &capturingLogger{}
			fake := &fakeClient{
				script: []error{&HTTPError{StatusCode: 503, Body: "overloaded"}},
				result: Result{Text: "ok", Model: "m"},
			}
			rc := NewRetryClient(fake, WithRetryLogger(log), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(ctx, req)
			So(err, ShouldBeNil)
			So(fake.attempts, ShouldEqual, 2)

			attempts := log.byMsg("model call attempt")
			So(attempts, ShouldHaveLength, 2)
			for _, e := range attempts {
				So(e.fields["correlation_id"], ShouldEqual, "corr-123")
			}

			retries := log.byMsg("model call failed, retrying")
			So(retries, ShouldHaveLength, 1)
			So(retries[0].fields["correlation_id"], ShouldEqual, "corr-123")

			succeeded := log.byMsg("model call succeeded")
			So(succeeded, ShouldHaveLength, 1)
			So(succeeded[0].fields["correlation_id"], ShouldEqual, "corr-123")
		})

		Convey("Exhausted and fatal failures carry it too", func() {
			log := &capturingLogger{}
			fake := &fakeClient{
				script: []error{
					&HTTPError{StatusCode: 500, Body: "one"},
					&HTTPError{StatusCode: 500, Body: "two"},
					&HTTPError{StatusCode: 500, Body: "three"},
				},
			}
			rc := NewRetryClient(fake, WithRetryLogger(log), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(ctx, req)
			So(err, ShouldNotBeNil)

			exhausted := log.byMsg("model call attempts exhausted")
			So(exhausted, ShouldHaveLength, 1)
			So(exhausted[0].fields["correlation_id"], ShouldEqual, "corr-123")
		})

		Convey("A context without a correlation id logs an empty one", func() {
			log := &capturingLogger{}
			fake := &fakeClient{result: Result{Text: "ok", Model: "m"}}
			rc := NewRetryClient(fake, WithRetryLogger(log), WithSleep(noSleep(&waits)))

			_, err := rc.Generate(context.Background(), req)
			So(err, ShouldBeNil)

			attempts := log.byMsg("model call attempt")
			So(attempts, ShouldHaveLength, 1)
			So(attempts[0].fields["correlation_id"], ShouldEqual, "")
		})
	})
}

func TestHTTPClient(t *testing.T) {
	Convey("Given an OpenAI-compatible test server", t, func() {
		ctx := context.Background()
		req := prompt.Request{System: "sys", User: `{"player":{}}`, Version: prompt.Version}

		Convey("A successful completion is returned verbatim", func(cv C) {
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				cv.So(body["model"], ShouldEqual, "test-model")

				_ = json.NewEncoder(w).Encode(map[string]any{
					"model": "test-model-2024",
					"choices": []map[string]any{
						{"message": map[string]any{"content": `{"ok":true}`}, "finish_reason": "stop"},
					},
				})
			}))
			defer srv.Close()

			c := NewHTTPClient(
				WithBaseURL(srv.URL),
				WithAPIKey("secret"),
				WithModel("test-model"),
			)
			res, err := c.Generate(ctx, req)
			So(err, ShouldBeNil)
			So(res.Text, ShouldEqual, `{"ok":true}`)
			So(res.Model, ShouldEqual, "test-model-2024")
			So(gotAuth, ShouldEqual, "Bearer secret")
		})

		Convey("A 429 yields a retryable HTTPError carrying Retry-After", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer srv.Close()

			c := NewHTTPClient(WithBaseURL(srv.URL))
			_, err := c.Generate(ctx, req)

			var httpErr *HTTPError
			So(errors.As(err, &httpErr), ShouldBeTrue)
			So(httpErr.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			So(httpErr.Retryable(), ShouldBeTrue)
			So(httpErr.RetryAfter, ShouldEqual, 7*time.Second)
		})

		Convey("A 2xx with no choices is an empty completion", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			}))
			defer srv.Close()

			c := NewHTTPClient(WithBaseURL(srv.URL))
			_, err := c.Generate(ctx, req)
			So(errors.Is(err, ErrEmptyCompletion), ShouldBeTrue)
		})

		Convey("A 400 is not retryable", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer srv.Close()

			c := NewHTTPClient(WithBaseURL(srv.URL))
			_, err := c.Generate(ctx, req)
			So(retryable(err), ShouldBeFalse)
		})
	})
}

func TestStaticClient(t *testing.T) {
	Convey("Given the offline client", t, func() {
		ctx := context.Background()
		summary := stats.Summarize(testGames())
		req, err := prompt.Build(testPlayer(), summary)
		So(err, ShouldBeNil)

		Convey("Its output parses and passes content validation", func() {
			res, genErr := NewStaticClient().Generate(ctx, req)
			So(genErr, ShouldBeNil)
			So(res.Model, ShouldEqual, "static")

			parsed, parseErr := content.Parse(res.Text)
			So(parseErr, ShouldBeNil)
			So(parsed.Meta.PlayerName, ShouldEqual, "Jordan Miles")

			v := content.NewValidator(content.Guardrails{
				MedicalTerms:    []string{"diagnose", "see a doctor"},
				GuaranteeTerms:  []string{"guaranteed scholarship", "definitely will"},
				DisclaimerTerms: []string{"not a guarantee"},
			})
			So(v.Validate(parsed, summary.Aggregate), ShouldBeNil)
		})

		Convey("Output is deterministic for the same request", func() {
			a, _ := NewStaticClient().Generate(ctx, req)
			b, _ := NewStaticClient().Generate(ctx, req)
			So(a.Text, ShouldEqual, b.Text)
		})
	})
}
