// Package prompt serializes a player's profile, aggregated statistics, and
// context notes into a deterministic request for the AI backend.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hooplab/passport/internal/domain/model"
	"github.com/hooplab/passport/internal/domain/stats"
)

// Version identifies the instruction set. Stored on every report so that
// content can be audited against the instructions that produced it.
const Version = "player_passport_v1"

// systemInstructions is the fixed contract the AI must follow. Changing it
// requires a new Version.
const systemInstructions = `You are Player Passport's AI coach and analyst. Turn limited youth/high-school basketball box score data plus optional coach/parent notes into a trustworthy, motivational, parent-friendly development report and a shareable player profile summary.

NON-NEGOTIABLE RULES:
- Ground every claim in the supplied statistics. Do NOT invent facts, stats, injuries, awards, rankings, or measurements not in the input.
- Do NOT claim guarantees about scholarships, recruiting outcomes, offers, or scout attention.
- Do NOT provide medical advice, diagnoses, or treatment recommendations.
- If data is missing or noisy, say explicitly what is unknown and state your confidence level with a reason.
- Keep advice age-appropriate, practical, and positive. Avoid harsh language.
- Use basketball language that parents understand; explain jargon briefly if used.
- The college fit indicator is a rough placeholder based only on provided stats and context. Use cautious wording.
- The meta.disclaimer must state that the report is based on limited data and makes no guarantee or promise about future performance or recruiting outcomes.

OUTPUT FORMAT:
Return ONLY valid JSON (no markdown fences) matching the requested schema exactly. All text must be ready to render in a web UI. Keep each bullet concise.`

// Request is the serialized AI backend request. Identical inputs always
// produce an identical Request, which is what makes the fingerprint cache and
// test reproducibility work.
type Request struct {
	System  string
	User    string
	Version string
}

// playerSection mirrors the profile fields the report may reference.
type playerSection struct {
	Name     string   `json:"name"`
	Grade    string   `json:"grade"`
	Position string   `json:"position"`
	Height   string   `json:"height,omitempty"`
	Team     string   `json:"team,omitempty"`
	Goals    []string `json:"goals,omitempty"`
}

type gameSection struct {
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

	// Rendered percentages, "–" when a game had no attempts of that kind.
	FGPct string `json:"fg_pct"`
	TPPct string `json:"three_pct"`
	FTPct string `json:"ft_pct"`

	Notes string `json:"notes,omitempty"`
}

type contextSection struct {
	CompetitionLevel string `json:"competition_level,omitempty"`
	Role             string `json:"role,omitempty"`
	MinutesContext   string `json:"minutes_context,omitempty"`
}

type insightsSection struct {
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

type userPayload struct {
	Player           playerSection   `json:"player"`
	Games            []gameSection   `json:"games"`
	ComputedInsights insightsSection `json:"computed_insights"`
	Context          *contextSection `json:"context,omitempty"`
	CoachNotes       string          `json:"coach_notes,omitempty"`
	ParentNotes      string          `json:"parent_notes,omitempty"`
}

// Build serializes the request body. Games must already belong to the player;
// ordering inside the payload follows the summary's date-ascending rows.
func Build(player model.Player, summary stats.Summary) (Request, error) {
	payload := userPayload{
		Player: playerSection{
			Name:     player.Name,
			Grade:    player.Grade,
			Position: player.Position,
			Height:   player.Height,
			Team:     player.Team,
			Goals:    player.Goals,
		},
		Games:       make([]gameSection, 0, len(summary.Lines)),
		CoachNotes:  player.CoachNotes,
		ParentNotes: player.ParentNotes,
	}

	for i, line := range summary.Lines {
		label := line.GameLabel
		if label == "" {
			label = fmt.Sprintf("Game %d", i+1)
		}
		payload.Games = append(payload.Games, gameSection{
			GameLabel: label,
			Date:      line.Date,
			Opponent:  line.Opponent,
			Minutes:   line.Minutes,
			PTS:       line.PTS,
			REB:       line.REB,
			AST:       line.AST,
			STL:       line.STL,
			BLK:       line.BLK,
			TOV:       line.TOV,
			FGM:       line.FGM,
			FGA:       line.FGA,
			TPM:       line.TPM,
			TPA:       line.TPA,
			FTM:       line.FTM,
			FTA:       line.FTA,
			FGPct:     stats.PctString(line.FGPct),
			TPPct:     stats.PctString(line.TPPct),
			FTPct:     stats.PctString(line.FTPct),
			Notes:     line.Notes,
		})
	}

	agg := summary.Aggregate
	payload.ComputedInsights = insightsSection{
		GamesCount:    agg.GamesCount,
		PTSAvg:        agg.PTSAvg,
		REBAvg:        agg.REBAvg,
		ASTAvg:        agg.ASTAvg,
		TOVAvg:        agg.TOVAvg,
		MinutesAvg:    agg.MinutesAvg,
		FGPct:         agg.FGPct,
		TPPct:         agg.TPPct,
		FTPct:         agg.FTPct,
		ASTToTOVRatio: agg.ASTToTOVRatio,
	}

	if player.CompetitionLevel != "" || player.Role != "" || player.MinutesContext != "" {
		payload.Context = &contextSection{
			CompetitionLevel: player.CompetitionLevel,
			Role:             player.Role,
			MinutesContext:   player.MinutesContext,
		}
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Request{}, fmt.Errorf("marshal prompt payload: %w", err)
	}

	return Request{
		System:  systemInstructions,
		User:    string(body),
		Version: Version,
	}, nil
}

// Fingerprint computes the stable cache key over (player id, sorted game ids).
func Fingerprint(playerID string, gameIDs []string) string {
	sorted := make([]string, len(gameIDs))
	copy(sorted, gameIDs)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(playerID + ":" + strings.Join(sorted, ":")))
	return hex.EncodeToString(sum[:])
}

// ReportWindow renders the covered date range, e.g. "Dec 15-28, 2024".
func ReportWindow(games []model.PlayerGame) string {
	if len(games) == 0 {
		return "No games"
	}

	ordered := make([]model.PlayerGame, len(games))
	copy(ordered, games)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GameDate.Before(ordered[j].GameDate)
	})

	start, end := ordered[0].GameDate, ordered[len(ordered)-1].GameDate
	switch {
	case start.Equal(end):
		return start.Format("Jan 02, 2006")
	case start.Year() == end.Year() && start.Month() == end.Month():
		return start.Format("Jan 02") + "-" + end.Format("02, 2006")
	case start.Year() == end.Year():
		return start.Format("Jan 02") + "-" + end.Format("Jan 02, 2006")
	default:
		return start.Format("Jan 02, 2006") + "-" + end.Format("Jan 02, 2006")
	}
}
