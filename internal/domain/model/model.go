// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Player is the tracked individual whose game history is analyzed.
type Player struct {
	ID      string
	OwnerID string // account that owns this player profile

	Name     string
	Grade    string // e.g. "9th", "10th"
	Position string // Guard, Wing, Big
	Height   string
	Team     string
	Goals    []string

	// Context fed verbatim into the prompt.
	CompetitionLevel string // e.g. "JV", "Varsity", "AAU"
	Role             string // e.g. "starter", "rotation"
	MinutesContext   string
	CoachNotes       string
	ParentNotes      string

	CreatedAt time.Time
}

// PlayerGame is one recorded game performance. Identity fields and the stat
// line are immutable once recorded.
type PlayerGame struct {
	ID       string
	PlayerID string

	GameDate  time.Time
	Opponent  string
	GameLabel string // e.g. "Game 1", "vs Eagles"

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

	Notes string

	CreatedAt time.Time
}

// Validate checks the stat line invariants: every made count is bounded by its
// attempt count, and three-point attempts are a subset of field goal attempts.
func (g *PlayerGame) Validate() error {
	counts := map[string]int{
		"minutes": g.Minutes, "pts": g.PTS, "reb": g.REB, "ast": g.AST,
		"stl": g.STL, "blk": g.BLK, "tov": g.TOV,
		"fgm": g.FGM, "fga": g.FGA, "tpm": g.TPM, "tpa": g.TPA,
		"ftm": g.FTM, "fta": g.FTA,
	}
	for name, v := range counts {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidGame, name)
		}
	}
	if g.FGM > g.FGA {
		return fmt.Errorf("%w: fgm %d exceeds fga %d", ErrInvalidGame, g.FGM, g.FGA)
	}
	if g.TPM > g.TPA {
		return fmt.Errorf("%w: tpm %d exceeds tpa %d", ErrInvalidGame, g.TPM, g.TPA)
	}
	if g.FTM > g.FTA {
		return fmt.Errorf("%w: ftm %d exceeds fta %d", ErrInvalidGame, g.FTM, g.FTA)
	}
	if g.TPA > g.FGA {
		return fmt.Errorf("%w: tpa %d exceeds fga %d", ErrInvalidGame, g.TPA, g.FGA)
	}
	return nil
}

// ReportStatus is the report lifecycle state.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusGenerating ReportStatus = "generating"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// Terminal reports never transition again.
func (s ReportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether s -> to is a legal lifecycle move. A cache hit
// may jump pending directly to completed.
func (s ReportStatus) CanTransition(to ReportStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return to == StatusGenerating || to == StatusCompleted || to == StatusFailed
	case StatusGenerating:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Report is one AI-generated development report. History is append-only: a new
// generation request always creates a new Report.
type Report struct {
	ID       string
	PlayerID string

	// GameIDs is the exact set of games this report was generated from.
	GameIDs []string

	// Fingerprint identifies the (player, sorted game set) pair for caching.
	Fingerprint string

	Status       ReportStatus
	ReportWindow string // e.g. "Dec 15-28, 2024"

	// Content holds the validated report JSON; nil until completed.
	Content json.RawMessage

	// ErrorText is set only when Status is failed.
	ErrorText string

	ModelUsed     string
	PromptVersion string

	// ShareToken grants unauthenticated read access to the completed content.
	// Assigned once at creation, never reused.
	ShareToken string

	CorrelationID string

	CreatedAt time.Time
}
