package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hooplab/passport/internal/domain/model"
)

func newPendingReport(id, playerID string, created time.Time) *model.Report {
	token, _ := NewShareToken()
	return &model.Report{
		ID:            id,
		PlayerID:      playerID,
		GameIDs:       []string{"g1", "g2", "g3"},
		Fingerprint:   "fp-" + id,
		Status:        model.StatusPending,
		ShareToken:    token,
		PromptVersion: "player_passport_v1",
		CreatedAt:     created,
	}
}

func TestMemoryReportStore(t *testing.T) {
	Convey("Given an in-memory report store", t, func() {
		ctx := context.Background()
		s := NewMemoryReportStore()
		now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

		Convey("Create then Get round-trips", func() {
			r := newPendingReport("r1", "p1", now)
			So(s.Create(ctx, r), ShouldBeNil)

			got, err := s.Get(ctx, "r1")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusPending)
			So(got.GameIDs, ShouldResemble, []string{"g1", "g2", "g3"})
		})

		Convey("Get of an unknown ID is not found", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Duplicate IDs are rejected", func() {
			r := newPendingReport("r1", "p1", now)
			So(s.Create(ctx, r), ShouldBeNil)
			So(errors.Is(s.Create(ctx, newPendingReport("r1", "p1", now)), ErrDuplicateKey), ShouldBeTrue)
		})

		Convey("The share token resolves to the report", func() {
			r := newPendingReport("r1", "p1", now)
			So(s.Create(ctx, r), ShouldBeNil)

			got, err := s.GetByShareToken(ctx, r.ShareToken)
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, "r1")

			_, err = s.GetByShareToken(ctx, "bogus")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("The full lifecycle lands on completed", func() {
			So(s.Create(ctx, newPendingReport("r1", "p1", now)), ShouldBeNil)
			So(s.MarkGenerating(ctx, "r1"), ShouldBeNil)
			So(s.Complete(ctx, "r1", json.RawMessage(`{"ok":true}`), "gpt-4o"), ShouldBeNil)

			got, _ := s.Get(ctx, "r1")
			So(got.Status, ShouldEqual, model.StatusCompleted)
			So(string(got.Content), ShouldEqual, `{"ok":true}`)
			So(got.ModelUsed, ShouldEqual, "gpt-4o")
		})

		Convey("A cache hit completes straight from pending", func() {
			So(s.Create(ctx, newPendingReport("r1", "p1", now)), ShouldBeNil)
			So(s.Complete(ctx, "r1", json.RawMessage(`{}`), "static"), ShouldBeNil)

			got, _ := s.Get(ctx, "r1")
			So(got.Status, ShouldEqual, model.StatusCompleted)
		})

		Convey("Terminal statuses cannot be left", func() {
			So(s.Create(ctx, newPendingReport("r1", "p1", now)), ShouldBeNil)
			So(s.MarkGenerating(ctx, "r1"), ShouldBeNil)
			So(s.Fail(ctx, "r1", "upstream timeout"), ShouldBeNil)

			So(errors.Is(s.MarkGenerating(ctx, "r1"), model.ErrTerminalState), ShouldBeTrue)
			So(errors.Is(s.Complete(ctx, "r1", json.RawMessage(`{}`), "m"), model.ErrTerminalState), ShouldBeTrue)

			got, _ := s.Get(ctx, "r1")
			So(got.Status, ShouldEqual, model.StatusFailed)
			So(got.ErrorText, ShouldEqual, "upstream timeout")
		})

		Convey("A completed report cannot be failed afterwards", func() {
			So(s.Create(ctx, newPendingReport("r1", "p1", now)), ShouldBeNil)
			So(s.Complete(ctx, "r1", json.RawMessage(`{}`), "m"), ShouldBeNil)
			So(errors.Is(s.Fail(ctx, "r1", "late"), model.ErrTerminalState), ShouldBeTrue)
		})

		Convey("ListByPlayer returns newest first and honors the limit", func() {
			So(s.Create(ctx, newPendingReport("r1", "p1", now)), ShouldBeNil)
			So(s.Create(ctx, newPendingReport("r2", "p1", now.Add(time.Hour))), ShouldBeNil)
			So(s.Create(ctx, newPendingReport("r3", "p1", now.Add(2*time.Hour))), ShouldBeNil)
			So(s.Create(ctx, newPendingReport("other", "p2", now)), ShouldBeNil)

			reports, err := s.ListByPlayer(ctx, "p1", 2)
			So(err, ShouldBeNil)
			So(len(reports), ShouldEqual, 2)
			So(reports[0].ID, ShouldEqual, "r3")
			So(reports[1].ID, ShouldEqual, "r2")

			count, _ := s.Count(ctx)
			So(count, ShouldEqual, 4)
		})
	})
}

func TestMemoryPlayerStore(t *testing.T) {
	Convey("Given an in-memory player store", t, func() {
		ctx := context.Background()
		s := NewMemoryPlayerStore()
		day := func(d int) time.Time {
			return time.Date(2024, 12, d, 0, 0, 0, 0, time.UTC)
		}

		Convey("Games require an existing player", func() {
			err := s.AddGame(ctx, &model.PlayerGame{ID: "g1", PlayerID: "missing"})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("ListGames returns most recent games first, capped at the limit", func() {
			So(s.CreatePlayer(ctx, &model.Player{ID: "p1", OwnerID: "o1", Name: "Jordan"}), ShouldBeNil)
			for i, d := range []int{3, 15, 1, 8} {
				game := &model.PlayerGame{ID: string(rune('a' + i)), PlayerID: "p1", GameDate: day(d)}
				So(s.AddGame(ctx, game), ShouldBeNil)
			}

			games, err := s.ListGames(ctx, "p1", 3)
			So(err, ShouldBeNil)
			So(len(games), ShouldEqual, 3)
			So(games[0].GameDate, ShouldEqual, day(15))
			So(games[1].GameDate, ShouldEqual, day(8))
			So(games[2].GameDate, ShouldEqual, day(3))
		})

		Convey("Counts track created players", func() {
			So(s.CreatePlayer(ctx, &model.Player{ID: "p1", OwnerID: "o1"}), ShouldBeNil)
			So(s.CreatePlayer(ctx, &model.Player{ID: "p2", OwnerID: "o1"}), ShouldBeNil)
			count, _ := s.CountPlayers(ctx)
			So(count, ShouldEqual, 2)
		})
	})
}

func TestNewShareToken(t *testing.T) {
	Convey("Share tokens are URL-safe, fixed length, and unique", t, func() {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, err := NewShareToken()
			So(err, ShouldBeNil)
			So(len(token), ShouldEqual, 43)
			So(token, ShouldNotContainSubstring, "+")
			So(token, ShouldNotContainSubstring, "/")
			So(token, ShouldNotContainSubstring, "=")
			So(seen[token], ShouldBeFalse)
			seen[token] = true
		}
	})
}
