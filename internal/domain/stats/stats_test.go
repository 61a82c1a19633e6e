package stats

import (
	"testing"
	"time"

	"github.com/hooplab/passport/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func game(date string, fgm, fga int) model.PlayerGame {
	d, _ := time.Parse(time.DateOnly, date)
	return model.PlayerGame{
		GameDate: d,
		Opponent: "Eagles",
		FGM:      fgm,
		FGA:      fga,
	}
}

func TestCombinedShootingPercentage(t *testing.T) {
	Convey("Given two games where per-game percentages would mislead", t, func() {
		// Game A: 1/4 = 25%, Game B: 9/16 = 56.25%.
		// Combined: 10/20 = 50%. Average of percentages: 40.6%.
		games := []model.PlayerGame{
			game("2024-12-01", 1, 4),
			game("2024-12-05", 9, 16),
		}

		summary := Summarize(games)

		Convey("Then the aggregate uses total makes over total attempts", func() {
			So(summary.Aggregate.FGPct, ShouldEqual, 50.0)
		})

		Convey("And it does not equal the average of per-game percentages", func() {
			avgOfPcts := (*summary.Lines[0].FGPct + *summary.Lines[1].FGPct) / 2
			So(avgOfPcts, ShouldAlmostEqual, 40.65, 0.1)
			So(summary.Aggregate.FGPct, ShouldNotAlmostEqual, avgOfPcts, 0.1)
		})
	})

	Convey("Given the three-game scenario 10/20, 4/10, 6/20", t, func() {
		games := []model.PlayerGame{
			game("2024-12-01", 10, 20),
			game("2024-12-03", 4, 10),
			game("2024-12-07", 6, 20),
		}

		summary := Summarize(games)

		Convey("Then aggregate FG% is 20/50 = 40%", func() {
			So(summary.Aggregate.FGPct, ShouldEqual, 40.0)
		})
	})
}

func TestAverages(t *testing.T) {
	Convey("Given three games with counting stats", t, func() {
		d := func(s string) time.Time {
			v, _ := time.Parse(time.DateOnly, s)
			return v
		}
		games := []model.PlayerGame{
			{GameDate: d("2024-11-01"), PTS: 10, REB: 4, AST: 3, TOV: 2, Minutes: 20},
			{GameDate: d("2024-11-05"), PTS: 15, REB: 6, AST: 5, TOV: 1, Minutes: 25},
			{GameDate: d("2024-11-09"), PTS: 12, REB: 5, AST: 4, TOV: 3, Minutes: 30},
		}

		summary := Summarize(games)
		agg := summary.Aggregate

		Convey("Then averages are rounded to one decimal", func() {
			So(agg.GamesCount, ShouldEqual, 3)
			So(agg.PTSAvg, ShouldEqual, 12.3)
			So(agg.REBAvg, ShouldEqual, 5.0)
			So(agg.ASTAvg, ShouldEqual, 4.0)
			So(agg.TOVAvg, ShouldEqual, 2.0)
			So(agg.MinutesAvg, ShouldEqual, 25.0)
		})

		Convey("And the assist/turnover ratio uses totals", func() {
			So(agg.ASTToTOVRatio, ShouldEqual, 2.0) // 12/6
		})
	})
}

func TestOrdering(t *testing.T) {
	Convey("Given games supplied out of date order", t, func() {
		games := []model.PlayerGame{
			game("2024-12-07", 6, 20),
			game("2024-12-01", 10, 20),
			game("2024-12-03", 4, 10),
		}

		summary := Summarize(games)

		Convey("Then rows are ordered by game date ascending", func() {
			So(summary.Lines[0].Date, ShouldEqual, "2024-12-01")
			So(summary.Lines[1].Date, ShouldEqual, "2024-12-03")
			So(summary.Lines[2].Date, ShouldEqual, "2024-12-07")
		})

		Convey("And the aggregate is order-independent", func() {
			reordered := Summarize([]model.PlayerGame{games[1], games[2], games[0]})
			So(summary.Aggregate, ShouldResemble, reordered.Aggregate)
		})
	})
}

func TestZeroAttempts(t *testing.T) {
	Convey("Given a game with no attempts of a shot type", t, func() {
		g := game("2024-12-01", 0, 0)

		summary := Summarize([]model.PlayerGame{g})

		Convey("Then the per-game percentage is undefined", func() {
			So(summary.Lines[0].FGPct, ShouldBeNil)
			So(PctString(summary.Lines[0].FGPct), ShouldEqual, "–")
		})

		Convey("And the combined percentage degrades to zero", func() {
			So(summary.Aggregate.FGPct, ShouldEqual, 0.0)
		})
	})
}

func TestFormatPct(t *testing.T) {
	Convey("Given percentage values", t, func() {
		So(FormatPct(40), ShouldEqual, "40.0%")
		So(FormatPct(56.25), ShouldEqual, "56.2%")
		v := 33.3
		So(PctString(&v), ShouldEqual, "33.3%")
	})
}
