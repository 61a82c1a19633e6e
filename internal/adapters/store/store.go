// Package store persists players, games, and generated reports.
package store

import (
	"context"
	"encoding/json"

	"github.com/hooplab/passport/internal/domain/model"
)

// ReportStore persists reports and enforces the status state machine:
// transitions out of a terminal status are rejected with
// model.ErrTerminalState regardless of backend.
type ReportStore interface {
	// Create inserts a new pending report.
	Create(ctx context.Context, report *model.Report) error

	// Get returns a report by ID, model.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*model.Report, error)

	// GetByShareToken returns a report by its share token.
	GetByShareToken(ctx context.Context, token string) (*model.Report, error)

	// ListByPlayer returns a player's reports, newest first.
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*model.Report, error)

	// MarkGenerating moves a pending report to generating.
	MarkGenerating(ctx context.Context, id string) error

	// Complete stores validated content and moves the report to completed.
	// Allowed from pending (cache hit) and from generating.
	Complete(ctx context.Context, id string, content json.RawMessage, modelUsed string) error

	// Fail records the failure reason and moves the report to failed.
	Fail(ctx context.Context, id string, errText string) error

	// Count returns the total number of reports.
	Count(ctx context.Context) (int64, error)
}

// PlayerStore persists players and their game logs.
type PlayerStore interface {
	// CreatePlayer inserts a new player.
	CreatePlayer(ctx context.Context, player *model.Player) error

	// GetPlayer returns a player by ID, model.ErrNotFound when absent.
	GetPlayer(ctx context.Context, id string) (*model.Player, error)

	// AddGame appends a game to a player's log.
	AddGame(ctx context.Context, game *model.PlayerGame) error

	// ListGames returns up to limit of the player's most recent games by
	// game date. limit <= 0 means no limit.
	ListGames(ctx context.Context, playerID string, limit int) ([]model.PlayerGame, error)

	// CountPlayers returns the total number of players.
	CountPlayers(ctx context.Context) (int64, error)
}
