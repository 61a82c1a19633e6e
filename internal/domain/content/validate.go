package content

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hooplab/passport/internal/domain/stats"
)

// Guardrails carries the configurable safety term lists. The validator never
// hard-codes banned phrases; operators supply them through configuration.
type Guardrails struct {
	MedicalTerms    []string
	GuaranteeTerms  []string
	DisclaimerTerms []string
}

// pctTolerance is the allowed drift between a percentage quoted in a key
// metric and the aggregate computed from the supplied games.
const pctTolerance = 0.1

var pctPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// Validator checks a parsed report against structure bounds, safety
// guardrails, and numeric consistency with the request's aggregate. Any
// violation rejects the whole report; there is no partial acceptance.
type Validator struct {
	guardrails Guardrails
}

// NewValidator creates a validator with the given guardrail configuration.
func NewValidator(g Guardrails) *Validator {
	return &Validator{guardrails: g}
}

// Validate fails closed: the returned error wraps ErrContentRejected and
// enumerates every violation found.
func (v *Validator) Validate(r *Report, agg stats.Aggregate) error {
	var c checker

	v.checkStructure(&c, r)
	v.checkGuardrails(&c, r)
	v.checkConsistency(&c, r, agg)

	if len(c.violations) > 0 {
		return fmt.Errorf("%w: %s", ErrContentRejected, strings.Join(c.violations, "; "))
	}
	return nil
}

// checker accumulates human-readable violations.
type checker struct {
	violations []string
}

func (c *checker) addf(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}

func (c *checker) text(field, value string, min, max int) {
	n := len(strings.TrimSpace(value))
	if n < min {
		c.addf("%s shorter than %d characters", field, min)
		return
	}
	if n > max {
		c.addf("%s longer than %d characters", field, max)
	}
}

func (c *checker) list(field string, items []string, min, max, itemMax int) {
	if len(items) < min || len(items) > max {
		c.addf("%s must have %d-%d items, got %d", field, min, max, len(items))
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			c.addf("%s[%d] is empty", field, i)
		} else if len(item) > itemMax {
			c.addf("%s[%d] longer than %d characters", field, i, itemMax)
		}
	}
}

func (v *Validator) checkStructure(c *checker, r *Report) {
	c.text("meta.player_name", r.Meta.PlayerName, 1, 255)
	c.text("meta.report_window", r.Meta.ReportWindow, 1, 100)
	c.text("meta.confidence_reason", r.Meta.ConfidenceReason, 10, 500)
	c.text("meta.disclaimer", r.Meta.Disclaimer, 50, 1000)

	switch r.Meta.ConfidenceLevel {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		c.addf("meta.confidence_level %q not in {low, medium, high}", r.Meta.ConfidenceLevel)
	}

	c.text("growth_summary", r.GrowthSummary, 100, 2000)
	c.text("motivational_message", r.MotivationalMessage, 50, 500)

	dev := r.DevelopmentReport
	c.list("development_report.strengths", dev.Strengths, 2, 5, 300)
	c.list("development_report.growth_areas", dev.GrowthAreas, 2, 5, 300)
	c.list("development_report.trend_insights", dev.TrendInsights, 3, 5, 300)
	c.list("development_report.next_2_weeks_focus", dev.NextTwoWeeksFocus, 3, 5, 300)

	if n := len(dev.KeyMetrics); n < 3 || n > 6 {
		c.addf("development_report.key_metrics must have 3-6 items, got %d", n)
	}
	for i, m := range dev.KeyMetrics {
		prefix := fmt.Sprintf("development_report.key_metrics[%d]", i)
		c.text(prefix+".label", m.Label, 1, 100)
		c.text(prefix+".value", m.Value, 1, 50)
		c.text(prefix+".note", m.Note, 10, 300)
	}

	if n := len(r.DrillPlan); n < 3 || n > 5 {
		c.addf("drill_plan must have 3-5 items, got %d", n)
	}
	for i, d := range r.DrillPlan {
		prefix := fmt.Sprintf("drill_plan[%d]", i)
		c.text(prefix+".title", d.Title, 5, 100)
		c.text(prefix+".why_this_drill", d.WhyThisDrill, 20, 300)
		c.text(prefix+".how_to_do_it", d.HowToDoIt, 30, 500)
		c.text(prefix+".frequency", d.Frequency, 5, 100)
		c.text(prefix+".success_metric", d.SuccessMetric, 10, 200)
	}

	fit := r.CollegeFitIndicator
	c.text("college_fit_indicator_v1.label", fit.Label, 10, 150)
	c.text("college_fit_indicator_v1.reasoning", fit.Reasoning, 50, 500)
	c.list("college_fit_indicator_v1.what_to_improve_to_level_up", fit.WhatToImprove, 2, 5, 300)

	profile := r.PlayerProfile
	c.text("player_profile.headline", profile.Headline, 10, 200)
	c.text("player_profile.player_info.name", profile.PlayerInfo.Name, 1, 255)
	c.list("player_profile.top_stats_snapshot", profile.TopStatsSnapshot, 3, 5, 300)
	c.list("player_profile.strengths_short", profile.StrengthsShort, 2, 4, 300)
	c.list("player_profile.development_areas_short", profile.DevelopmentAreasShort, 2, 4, 300)
	c.text("player_profile.coach_notes_summary", profile.CoachNotesSummary, 10, 500)
	c.text("player_profile.highlight_summary_placeholder", profile.HighlightSummaryPlaceholder, 20, 300)

	if n := len(r.StructuredData.PerGameSummary); n < 1 || n > 10 {
		c.addf("structured_data.per_game_summary must have 1-10 items, got %d", n)
	}
}

// checkGuardrails scans every narrative field for banned terms and requires
// the disclaimer to carry the mandated safety language.
func (v *Validator) checkGuardrails(c *checker, r *Report) {
	fields := v.narrativeFields(r)

	for _, f := range fields {
		lower := strings.ToLower(f.text)
		for _, term := range v.guardrails.MedicalTerms {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				c.addf("%s contains medical-advice language %q", f.name, term)
			}
		}
		for _, term := range v.guardrails.GuaranteeTerms {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				c.addf("%s contains guarantee language %q", f.name, term)
			}
		}
	}

	if len(v.guardrails.DisclaimerTerms) > 0 {
		lower := strings.ToLower(r.Meta.Disclaimer)
		found := false
		for _, term := range v.guardrails.DisclaimerTerms {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				found = true
				break
			}
		}
		if !found {
			c.addf("meta.disclaimer missing mandatory safety language (one of %s)",
				strings.Join(v.guardrails.DisclaimerTerms, ", "))
		}
	}
}

type narrativeField struct {
	name string
	text string
}

func (v *Validator) narrativeFields(r *Report) []narrativeField {
	fields := []narrativeField{
		{"growth_summary", r.GrowthSummary},
		{"motivational_message", r.MotivationalMessage},
		{"meta.confidence_reason", r.Meta.ConfidenceReason},
		{"college_fit_indicator_v1.label", r.CollegeFitIndicator.Label},
		{"college_fit_indicator_v1.reasoning", r.CollegeFitIndicator.Reasoning},
		{"player_profile.headline", r.PlayerProfile.Headline},
		{"player_profile.coach_notes_summary", r.PlayerProfile.CoachNotesSummary},
	}
	appendList := func(name string, items []string) {
		for i, item := range items {
			fields = append(fields, narrativeField{fmt.Sprintf("%s[%d]", name, i), item})
		}
	}
	appendList("development_report.strengths", r.DevelopmentReport.Strengths)
	appendList("development_report.growth_areas", r.DevelopmentReport.GrowthAreas)
	appendList("development_report.trend_insights", r.DevelopmentReport.TrendInsights)
	appendList("development_report.next_2_weeks_focus", r.DevelopmentReport.NextTwoWeeksFocus)
	appendList("college_fit_indicator_v1.what_to_improve_to_level_up", r.CollegeFitIndicator.WhatToImprove)
	for i, d := range r.DrillPlan {
		prefix := fmt.Sprintf("drill_plan[%d]", i)
		fields = append(fields,
			narrativeField{prefix + ".why_this_drill", d.WhyThisDrill},
			narrativeField{prefix + ".how_to_do_it", d.HowToDoIt},
		)
	}
	return fields
}

// checkConsistency cross-references percentages quoted in key metrics against
// the aggregate supplied with the request. Best effort: only metrics whose
// label names a recognized shot type are checked.
func (v *Validator) checkConsistency(c *checker, r *Report, agg stats.Aggregate) {
	for i, m := range r.DevelopmentReport.KeyMetrics {
		expected, ok := expectedPct(m.Label, agg)
		if !ok {
			continue
		}
		quoted, ok := extractPct(m.Value)
		if !ok {
			continue
		}
		if math.Abs(quoted-expected) > pctTolerance {
			c.addf("development_report.key_metrics[%d] quotes %.1f%% for %q but supplied stats say %.1f%%",
				i, quoted, m.Label, expected)
		}
	}
}

func expectedPct(label string, agg stats.Aggregate) (float64, bool) {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "three") || strings.Contains(lower, "3pt") || strings.Contains(lower, "3-point"):
		return agg.TPPct, true
	case strings.Contains(lower, "free throw") || strings.Contains(lower, "ft%"):
		return agg.FTPct, true
	case strings.Contains(lower, "field goal") || strings.Contains(lower, "fg"):
		return agg.FGPct, true
	default:
		return 0, false
	}
}

func extractPct(value string) (float64, bool) {
	match := pctPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
