// Package content defines the typed schema for generated report JSON and the
// validator that gates what the service is willing to store.
package content

import (
	"encoding/json"
	"fmt"
)

// Confidence levels allowed in report metadata.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Meta is the report metadata section.
type Meta struct {
	PlayerName       string `json:"player_name"`
	ReportWindow     string `json:"report_window"`
	ConfidenceLevel  string `json:"confidence_level"`
	ConfidenceReason string `json:"confidence_reason"`
	Disclaimer       string `json:"disclaimer"`
}

// KeyMetric is a single labeled metric in the development section.
type KeyMetric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note"`
}

// Development is the development report section.
type Development struct {
	Strengths         []string    `json:"strengths"`
	GrowthAreas       []string    `json:"growth_areas"`
	TrendInsights     []string    `json:"trend_insights"`
	KeyMetrics        []KeyMetric `json:"key_metrics"`
	NextTwoWeeksFocus []string    `json:"next_2_weeks_focus"`
}

// Drill is one item of the practice plan.
type Drill struct {
	Title         string `json:"title"`
	WhyThisDrill  string `json:"why_this_drill"`
	HowToDoIt     string `json:"how_to_do_it"`
	Frequency     string `json:"frequency"`
	SuccessMetric string `json:"success_metric"`
}

// CollegeFit is the cautious level-fit indicator.
type CollegeFit struct {
	Label         string   `json:"label"`
	Reasoning     string   `json:"reasoning"`
	WhatToImprove []string `json:"what_to_improve_to_level_up"`
}

// PlayerInfo repeats profile fields inside the shareable summary.
type PlayerInfo struct {
	Name     string   `json:"name"`
	Grade    string   `json:"grade"`
	Position string   `json:"position"`
	Height   string   `json:"height"`
	Team     string   `json:"team"`
	Goals    []string `json:"goals"`
}

// Profile is the compact shareable player summary.
type Profile struct {
	Headline                    string     `json:"headline"`
	PlayerInfo                  PlayerInfo `json:"player_info"`
	TopStatsSnapshot            []string   `json:"top_stats_snapshot"`
	StrengthsShort              []string   `json:"strengths_short"`
	DevelopmentAreasShort       []string   `json:"development_areas_short"`
	CoachNotesSummary           string     `json:"coach_notes_summary"`
	HighlightSummaryPlaceholder string     `json:"highlight_summary_placeholder"`
}

// PerGame is one echoed stat line in structured data.
type PerGame struct {
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
}

// Insights echoes the computed aggregate the prompt supplied.
type Insights struct {
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
}

// StructuredData is the machine-readable tail of the report.
type StructuredData struct {
	PerGameSummary   []PerGame `json:"per_game_summary"`
	ComputedInsights Insights  `json:"computed_insights"`
}

// Report is the complete generated report document.
type Report struct {
	Meta                Meta           `json:"meta"`
	GrowthSummary       string         `json:"growth_summary"`
	DevelopmentReport   Development    `json:"development_report"`
	DrillPlan           []Drill        `json:"drill_plan"`
	MotivationalMessage string         `json:"motivational_message"`
	CollegeFitIndicator CollegeFit     `json:"college_fit_indicator_v1"`
	PlayerProfile       Profile        `json:"player_profile"`
	StructuredData      StructuredData `json:"structured_data"`
}

// Parse decodes raw AI output into the typed schema. A decode failure is a
// distinct error kind from a content rejection so operators can tell a model
// that emits broken JSON apart from one that emits unsafe content.
func Parse(raw string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &r, nil
}

// Marshal renders the canonical stored form of a validated report. Raw AI
// bytes are never persisted directly.
func (r *Report) Marshal() (json.RawMessage, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report content: %w", err)
	}
	return out, nil
}
