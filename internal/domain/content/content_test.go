package content

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hooplab/passport/internal/domain/stats"
)

func testGuardrails() Guardrails {
	return Guardrails{
		MedicalTerms:    []string{"diagnose", "treatment", "medication", "see a doctor"},
		GuaranteeTerms:  []string{"guaranteed scholarship", "definitely will", "assured acceptance", "will be recruited", "college bound"},
		DisclaimerTerms: []string{"not a guarantee", "no guarantee", "does not guarantee"},
	}
}

func testAggregate() stats.Aggregate {
	return stats.Aggregate{
		GamesCount: 3,
		PTSAvg:     14.3,
		REBAvg:     6.0,
		ASTAvg:     4.7,
		FGPct:      40.0,
		TPPct:      31.3,
		FTPct:      75.0,
	}
}

// validReport builds a report that satisfies every bound and is numerically
// consistent with testAggregate.
func validReport() *Report {
	longText := func(s string, n int) string {
		return strings.TrimSpace(strings.Repeat(s+" ", n))
	}
	return &Report{
		Meta: Meta{
			PlayerName:       "Jordan Miles",
			ReportWindow:     "Dec 1-15, 2024",
			ConfidenceLevel:  ConfidenceMedium,
			ConfidenceReason: "Based on three games with complete box scores across the report window.",
			Disclaimer:       "This report is for development purposes only and is not a guarantee of any athletic or recruiting outcome.",
		},
		GrowthSummary: longText("Jordan showed consistent scoring output with steadily improving shot selection across the window.", 2),
		DevelopmentReport: Development{
			Strengths:   []string{"Strong finishing around the rim against contact.", "Active hands on defense producing deflections."},
			GrowthAreas: []string{"Free throw routine consistency under fatigue.", "Decision speed against full-court pressure."},
			TrendInsights: []string{
				"Scoring rose game over game across the window.",
				"Turnovers dropped as minutes increased.",
				"Rebounding held steady against bigger lineups.",
			},
			KeyMetrics: []KeyMetric{
				{Label: "Field Goal %", Value: "40.0%", Note: "Combined across all games in the window."},
				{Label: "Points Per Game", Value: "14.3 PPG", Note: "Average over the three recorded games."},
				{Label: "Free Throw %", Value: "75.0%", Note: "Combined makes over combined attempts."},
			},
			NextTwoWeeksFocus: []string{
				"Two dribble pull-up reps at game speed.",
				"Closeout footwork in shell drill daily.",
				"Free throws after conditioning blocks.",
			},
		},
		DrillPlan: []Drill{
			{
				Title:         "Pressure Free Throws",
				WhyThisDrill:  "Builds routine consistency when fatigued late in games.",
				HowToDoIt:     "Run a sprint, then shoot two free throws. Repeat for ten rounds tracking makes.",
				Frequency:     "4x per week",
				SuccessMetric: "16 of 20 makes under fatigue",
			},
			{
				Title:         "Closeout Shell Drill",
				WhyThisDrill:  "Sharpens defensive footwork and contest angles on shooters.",
				HowToDoIt:     "From help position, sprint to the shooter, chop steps, contest high hand without fouling. Five reps per spot.",
				Frequency:     "3x per week",
				SuccessMetric: "Clean contests without fouls on 8 of 10 reps",
			},
			{
				Title:         "Pull-Up Progression",
				WhyThisDrill:  "Converts improving shot selection into a reliable mid-range weapon.",
				HowToDoIt:     "One dribble left, one dribble right, pull up from the elbow. Twenty makes per side at game speed.",
				Frequency:     "Daily",
				SuccessMetric: "40 total makes inside 25 minutes",
			},
		},
		MotivationalMessage: "Your work between games is showing up on the scoreboard. Keep stacking disciplined reps.",
		CollegeFitIndicator: CollegeFit{
			Label:     "Developing contributor",
			Reasoning: "Current production and efficiency suggest a developing contributor profile with clear, coachable growth paths.",
			WhatToImprove: []string{
				"Raise free throw percentage above 80 percent.",
				"Cut turnovers against pressure by a third.",
			},
		},
		PlayerProfile: Profile{
			Headline:   "Aggressive two-way guard trending upward",
			PlayerInfo: PlayerInfo{Name: "Jordan Miles", Grade: "10", Position: "SG", Team: "Central HS"},
			TopStatsSnapshot: []string{
				"14.3 points per game",
				"6.0 rebounds per game",
				"4.7 assists per game",
			},
			StrengthsShort:              []string{"Rim finishing", "Defensive activity"},
			DevelopmentAreasShort:       []string{"Free throw consistency", "Press handling"},
			CoachNotesSummary:           "Coach highlights effort level and asks for louder defensive communication.",
			HighlightSummaryPlaceholder: "Highlight reel pending upload of game film for this window.",
		},
		StructuredData: StructuredData{
			PerGameSummary: []PerGame{
				{GameLabel: "Game 1", Date: "2024-12-01", Opponent: "East", Minutes: 28, PTS: 12},
				{GameLabel: "Game 2", Date: "2024-12-08", Opponent: "North", Minutes: 30, PTS: 14},
				{GameLabel: "Game 3", Date: "2024-12-15", Opponent: "West", Minutes: 31, PTS: 17},
			},
			ComputedInsights: Insights{GamesCount: 3, PTSAvg: 14.3, FGPct: 40.0, FTPct: 75.0},
		},
	}
}

func TestParse(t *testing.T) {
	Convey("Given raw model output", t, func() {
		Convey("Valid JSON round-trips through Parse and Marshal", func() {
			raw, err := validReport().Marshal()
			So(err, ShouldBeNil)

			parsed, err := Parse(string(raw))
			So(err, ShouldBeNil)
			So(parsed.Meta.PlayerName, ShouldEqual, "Jordan Miles")
			So(len(parsed.DrillPlan), ShouldEqual, 3)
		})

		Convey("Malformed JSON is a parse failure, not a rejection", func() {
			_, err := Parse(`{"meta": {"player_name": "Jordan"`)
			So(errors.Is(err, ErrMalformedResponse), ShouldBeTrue)
			So(errors.Is(err, ErrContentRejected), ShouldBeFalse)
		})
	})
}

func TestValidator(t *testing.T) {
	Convey("Given a validator with standard guardrails", t, func() {
		v := NewValidator(testGuardrails())
		agg := testAggregate()

		Convey("A well-formed, consistent report passes", func() {
			So(v.Validate(validReport(), agg), ShouldBeNil)
		})

		Convey("Missing disclaimer language is rejected", func() {
			r := validReport()
			r.Meta.Disclaimer = "This report is for development purposes only and reflects the supplied game data."
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "disclaimer")
		})

		Convey("Guarantee language is rejected wherever it appears", func() {
			r := validReport()
			r.GrowthSummary = r.GrowthSummary + " At this rate a guaranteed scholarship is within reach."
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "guarantee")
		})

		Convey("Medical advice language is rejected", func() {
			r := validReport()
			r.DrillPlan[0].WhyThisDrill = "If knee soreness persists you should see a doctor before continuing."
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "medical")
		})

		Convey("An unknown confidence level is rejected", func() {
			r := validReport()
			r.Meta.ConfidenceLevel = "very high"
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "confidence_level")
		})

		Convey("A percentage contradicting the supplied stats is rejected", func() {
			r := validReport()
			r.DevelopmentReport.KeyMetrics[0].Value = "55.0%"
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "55.0")
		})

		Convey("A percentage within tolerance is accepted", func() {
			r := validReport()
			r.DevelopmentReport.KeyMetrics[0].Value = "40.05%"
			So(v.Validate(r, agg), ShouldBeNil)
		})

		Convey("Metrics without a percentage are skipped by the consistency check", func() {
			r := validReport()
			r.DevelopmentReport.KeyMetrics[1].Value = "14.3 PPG"
			So(v.Validate(r, agg), ShouldBeNil)
		})

		Convey("Too few strengths fails cardinality bounds", func() {
			r := validReport()
			r.DevelopmentReport.Strengths = r.DevelopmentReport.Strengths[:1]
			err := v.Validate(r, agg)
			So(errors.Is(err, ErrContentRejected), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "strengths")
		})

		Convey("All violations are reported together", func() {
			r := validReport()
			r.Meta.ConfidenceLevel = "certain"
			r.MotivationalMessage = "Too short."
			err := v.Validate(r, agg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "confidence_level")
			So(err.Error(), ShouldContainSubstring, "motivational_message")
		})
	})
}

func TestGuardrailsAreConfiguration(t *testing.T) {
	Convey("Given a validator with empty guardrail lists", t, func() {
		v := NewValidator(Guardrails{})

		Convey("Term scans and the disclaimer check are skipped", func() {
			r := validReport()
			r.GrowthSummary = r.GrowthSummary + " A guaranteed scholarship awaits."
			So(v.Validate(r, testAggregate()), ShouldBeNil)
		})
	})
}
