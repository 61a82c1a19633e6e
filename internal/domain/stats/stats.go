// Package stats turns raw per-game records into summary rows and aggregate
// averages for display and for grounding the AI prompt.
package stats

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/hooplab/passport/internal/domain/model"
)

// maxAstTovRatio caps the assist/turnover ratio when turnovers are zero.
const maxAstTovRatio = 10.0

// Line is one per-game summary row. Percentage pointers are nil when the
// corresponding attempts are zero (rendered as "–").
type Line struct {
	GameLabel string
	Date      string // ISO yyyy-mm-dd
	Opponent  string

	Minutes int
	PTS     int
	REB     int
	AST     int
	STL     int
	BLK     int
	TOV     int
	FGM     int
	FGA     int
	TPM     int
	TPA     int
	FTM     int
	FTA     int

	FGPct *float64
	TPPct *float64
	FTPct *float64

	Notes string
}

// Aggregate holds averages across all games plus combined shooting
// percentages. Percentages are computed as sum-of-makes over sum-of-attempts,
// never as an average of per-game percentages, so low-volume games do not
// skew the result.
type Aggregate struct {
	GamesCount int

	PTSAvg     float64
	REBAvg     float64
	ASTAvg     float64
	STLAvg     float64
	BLKAvg     float64
	TOVAvg     float64
	MinutesAvg float64

	FGPct float64
	TPPct float64
	FTPct float64

	ASTToTOVRatio float64
}

// Summary is the aggregator output: rows ordered by game date ascending plus
// the aggregate block.
type Summary struct {
	Lines     []Line
	Aggregate Aggregate
}

// Summarize is a pure function over the given games. Row ordering is by game
// date ascending; the aggregate is order-independent.
func Summarize(games []model.PlayerGame) Summary {
	ordered := make([]model.PlayerGame, len(games))
	copy(ordered, games)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GameDate.Before(ordered[j].GameDate)
	})

	lines := make([]Line, 0, len(ordered))
	var (
		pts, reb, ast, stl, blk, tov, minutes int
		fgm, fga, tpm, tpa, ftm, fta          int
	)
	for _, g := range ordered {
		lines = append(lines, Line{
			GameLabel: g.GameLabel,
			Date:      g.GameDate.Format(time.DateOnly),
			Opponent:  g.Opponent,
			Minutes:   g.Minutes,
			PTS:       g.PTS,
			REB:       g.REB,
			AST:       g.AST,
			STL:       g.STL,
			BLK:       g.BLK,
			TOV:       g.TOV,
			FGM:       g.FGM,
			FGA:       g.FGA,
			TPM:       g.TPM,
			TPA:       g.TPA,
			FTM:       g.FTM,
			FTA:       g.FTA,
			FGPct:     pct(g.FGM, g.FGA),
			TPPct:     pct(g.TPM, g.TPA),
			FTPct:     pct(g.FTM, g.FTA),
			Notes:     g.Notes,
		})

		pts += g.PTS
		reb += g.REB
		ast += g.AST
		stl += g.STL
		blk += g.BLK
		tov += g.TOV
		minutes += g.Minutes
		fgm += g.FGM
		fga += g.FGA
		tpm += g.TPM
		tpa += g.TPA
		ftm += g.FTM
		fta += g.FTA
	}

	n := len(ordered)
	agg := Aggregate{GamesCount: n}
	if n > 0 {
		agg.PTSAvg = round1(float64(pts) / float64(n))
		agg.REBAvg = round1(float64(reb) / float64(n))
		agg.ASTAvg = round1(float64(ast) / float64(n))
		agg.STLAvg = round1(float64(stl) / float64(n))
		agg.BLKAvg = round1(float64(blk) / float64(n))
		agg.TOVAvg = round1(float64(tov) / float64(n))
		agg.MinutesAvg = round1(float64(minutes) / float64(n))
	}
	agg.FGPct = combinedPct(fgm, fga)
	agg.TPPct = combinedPct(tpm, tpa)
	agg.FTPct = combinedPct(ftm, fta)
	agg.ASTToTOVRatio = astTovRatio(ast, tov)

	return Summary{Lines: lines, Aggregate: agg}
}

// PctString renders a per-game percentage, "–" when attempts were zero.
func PctString(p *float64) string {
	if p == nil {
		return "–"
	}
	return FormatPct(*p)
}

// FormatPct renders a percentage with one decimal, e.g. "40.0%".
func FormatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func pct(makes, attempts int) *float64 {
	if attempts == 0 {
		return nil
	}
	v := round1(float64(makes) / float64(attempts) * 100)
	return &v
}

// combinedPct is sum-of-makes over sum-of-attempts across all games.
func combinedPct(makes, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return round1(float64(makes) / float64(attempts) * 100)
}

func astTovRatio(ast, tov int) float64 {
	if tov == 0 {
		if ast == 0 {
			return 0
		}
		return maxAstTovRatio
	}
	r := round1(float64(ast) / float64(tov))
	return math.Min(r, maxAstTovRatio)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
