package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hooplab/passport/internal/domain/content"
	"github.com/hooplab/passport/internal/domain/prompt"
	"github.com/hooplab/passport/internal/domain/stats"
)

// StaticClient produces a deterministic, schema-valid report straight from
// the request payload without calling any provider. It backs local
// development and deployments without an API key.
type StaticClient struct{}

// NewStaticClient creates a client that generates reports offline.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

// staticPayload mirrors the request's user payload closely enough to echo
// the computed numbers back into the report.
type staticPayload struct {
	Player struct {
		Name     string `json:"name"`
		Grade    string `json:"grade"`
		Position string `json:"position"`
		Height   string `json:"height"`
		Team     string `json:"team"`
	} `json:"player"`
	Games []struct {
		GameLabel string `json:"game_label"`
		Date      string `json:"date"`
		Opponent  string `json:"opponent"`
		Minutes   int    `json:"minutes"`
		PTS       int    `json:"pts"`
		REB       int    `json:"reb"`
		AST       int    `json:"ast"`
		STL       int    `json:"stl"`
		BLK       int    `json:"blk"`
		TOV       int    `json:"tov"`
		FGM       int    `json:"fgm"`
		FGA       int    `json:"fga"`
		TPM       int    `json:"tpm"`
		TPA       int    `json:"tpa"`
		FTM       int    `json:"ftm"`
		FTA       int    `json:"fta"`
		Notes     string `json:"notes"`
	} `json:"games"`
	ComputedInsights struct {
		GamesCount    int     `json:"games_count"`
		PTSAvg        float64 `json:"pts_avg"`
		REBAvg        float64 `json:"reb_avg"`
		ASTAvg        float64 `json:"ast_avg"`
		TOVAvg        float64 `json:"tov_avg"`
		MinutesAvg    float64 `json:"minutes_avg"`
		FGPct         float64 `json:"fg_pct"`
		TPPct         float64 `json:"three_pct"`
		FTPct         float64 `json:"ft_pct"`
		ASTToTOVRatio float64 `json:"ast_to_tov_ratio"`
	} `json:"computed_insights"`
	CoachNotes string `json:"coach_notes"`
}

// Generate builds the canned report. The returned text is JSON that passes
// the content parser and validator for the payload's stats.
func (s *StaticClient) Generate(_ context.Context, req prompt.Request) (Result, error) {
	var p staticPayload
	if err := json.Unmarshal([]byte(req.User), &p); err != nil {
		return Result{}, fmt.Errorf("decode payload: %w", err)
	}

	name := p.Player.Name
	if name == "" {
		name = "This player"
	}
	ins := p.ComputedInsights

	window := "Recent games"
	if n := len(p.Games); n == 1 {
		window = p.Games[0].Date
	} else if n > 1 {
		window = p.Games[0].Date + " to " + p.Games[n-1].Date
	}

	coachSummary := "No coach notes were provided for this report window."
	if p.CoachNotes != "" {
		coachSummary = "Coach notes for this window: " + truncate(p.CoachNotes, 400)
	}

	perGame := make([]content.PerGame, 0, len(p.Games))
	snapshot := make([]string, 0, 3)
	for _, g := range p.Games {
		perGame = append(perGame, content.PerGame{
			GameLabel: g.GameLabel, Date: g.Date, Opponent: g.Opponent,
			Minutes: g.Minutes, PTS: g.PTS, REB: g.REB, AST: g.AST,
			STL: g.STL, BLK: g.BLK, TOV: g.TOV,
			FGM: g.FGM, FGA: g.FGA, TPM: g.TPM, TPA: g.TPA,
			FTM: g.FTM, FTA: g.FTA, Notes: g.Notes,
		})
	}
	snapshot = append(snapshot,
		fmt.Sprintf("%.1f points per game", ins.PTSAvg),
		fmt.Sprintf("%.1f rebounds per game", ins.REBAvg),
		fmt.Sprintf("%.1f assists per game", ins.ASTAvg),
	)

	report := content.Report{
		Meta: content.Meta{
			PlayerName:      name,
			ReportWindow:    window,
			ConfidenceLevel: confidenceFor(ins.GamesCount),
			ConfidenceReason: fmt.Sprintf(
				"This report covers %d games with complete box scores and was generated without an external model.",
				ins.GamesCount),
			Disclaimer: "This development report is generated from the supplied game statistics for training guidance only. It is not a guarantee of playing time, recruitment, or any athletic outcome.",
		},
		GrowthSummary: fmt.Sprintf(
			"%s averaged %.1f points, %.1f rebounds, and %.1f assists over the last %d games while shooting %s from the field. The numbers below reflect only the games supplied for this window, so keep logging games to sharpen future reports.",
			name, ins.PTSAvg, ins.REBAvg, ins.ASTAvg, ins.GamesCount, stats.FormatPct(ins.FGPct)),
		DevelopmentReport: content.Development{
			Strengths: []string{
				fmt.Sprintf("Consistent scoring involvement at %.1f points per game.", ins.PTSAvg),
				fmt.Sprintf("Contributes on the glass with %.1f rebounds per game.", ins.REBAvg),
			},
			GrowthAreas: []string{
				fmt.Sprintf("Lift field goal efficiency above the current %s.", stats.FormatPct(ins.FGPct)),
				fmt.Sprintf("Protect the ball; the assist-to-turnover ratio sits at %.1f.", ins.ASTToTOVRatio),
			},
			TrendInsights: []string{
				fmt.Sprintf("Production tracked across %d recorded games in this window.", ins.GamesCount),
				fmt.Sprintf("Minutes averaged %.1f per game, enough for reliable trend reads.", ins.MinutesAvg),
				fmt.Sprintf("Free throw shooting sits at %s across the window.", stats.FormatPct(ins.FTPct)),
			},
			KeyMetrics: []content.KeyMetric{
				{Label: "Field Goal %", Value: stats.FormatPct(ins.FGPct), Note: "Combined makes over combined attempts for the window."},
				{Label: "Free Throw %", Value: stats.FormatPct(ins.FTPct), Note: "Combined makes over combined attempts for the window."},
				{Label: "Points Per Game", Value: fmt.Sprintf("%.1f PPG", ins.PTSAvg), Note: "Average across all recorded games in the window."},
			},
			NextTwoWeeksFocus: []string{
				"Finish every practice with a tracked shooting block.",
				"Chart turnovers per scrimmage and name the cause of each.",
				"Hold a consistent free throw routine under fatigue.",
			},
		},
		DrillPlan: []content.Drill{
			{
				Title:         "Form Shooting Ladder",
				WhyThisDrill:  "Grooves repeatable mechanics that raise field goal efficiency.",
				HowToDoIt:     "Start one foot from the rim, make five in a row, step back one spot. Work out to the elbow and back in, tracking total makes.",
				Frequency:     "Daily",
				SuccessMetric: "Complete the ladder in under 12 minutes",
			},
			{
				Title:         "Two-Ball Pound Series",
				WhyThisDrill:  "Builds handle security that converts directly into fewer turnovers.",
				HowToDoIt:     "Pound two balls simultaneously for 30 seconds, then alternate, then add a walk up the floor. Three rounds each variation.",
				Frequency:     "4x per week",
				SuccessMetric: "Three clean rounds without losing either ball",
			},
			{
				Title:         "Fatigue Free Throws",
				WhyThisDrill:  "Trains the free throw routine to hold up late in games.",
				HowToDoIt:     "Run a full-court sprint, then shoot two free throws. Repeat for ten rounds and record every make.",
				Frequency:     "3x per week",
				SuccessMetric: "16 of 20 makes under fatigue",
			},
		},
		MotivationalMessage: fmt.Sprintf(
			"%s, the work is showing up in the numbers. Stack two more focused weeks and the next report will show it.", name),
		CollegeFitIndicator: content.CollegeFit{
			Label: "Developing contributor",
			Reasoning: fmt.Sprintf(
				"Across %d games the production profile shows steady involvement with clear, coachable efficiency targets still ahead.",
				ins.GamesCount),
			WhatToImprove: []string{
				fmt.Sprintf("Raise combined field goal percentage beyond %s.", stats.FormatPct(ins.FGPct)),
				"Cut live-ball turnovers against pressure defenses.",
			},
		},
		PlayerProfile: content.Profile{
			Headline: fmt.Sprintf("%s: steady producer with room to grow", name),
			PlayerInfo: content.PlayerInfo{
				Name:     name,
				Grade:    p.Player.Grade,
				Position: p.Player.Position,
				Height:   p.Player.Height,
				Team:     p.Player.Team,
			},
			TopStatsSnapshot:            snapshot,
			StrengthsShort:              []string{"Scoring involvement", "Rebounding effort"},
			DevelopmentAreasShort:       []string{"Shooting efficiency", "Ball security"},
			CoachNotesSummary:           coachSummary,
			HighlightSummaryPlaceholder: "Highlight summary will appear once game film is uploaded for this window.",
		},
		StructuredData: content.StructuredData{
			PerGameSummary: perGame,
			ComputedInsights: content.Insights{
				GamesCount:    ins.GamesCount,
				PTSAvg:        ins.PTSAvg,
				REBAvg:        ins.REBAvg,
				ASTAvg:        ins.ASTAvg,
				TOVAvg:        ins.TOVAvg,
				MinutesAvg:    ins.MinutesAvg,
				FGPct:         ins.FGPct,
				TPPct:         ins.TPPct,
				FTPct:         ins.FTPct,
				ASTToTOVRatio: ins.ASTToTOVRatio,
			},
		},
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: string(raw), Model: "static"}, nil
}

func confidenceFor(games int) string {
	switch {
	case games >= 7:
		return content.ConfidenceHigh
	case games >= 4:
		return content.ConfidenceMedium
	default:
		return content.ConfidenceLow
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
