package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hooplab/passport/internal/domain/model"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a postgres connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

const pgErrUniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	name             TEXT NOT NULL,
	grade            TEXT NOT NULL DEFAULT '',
	position         TEXT NOT NULL DEFAULT '',
	height           TEXT NOT NULL DEFAULT '',
	team             TEXT NOT NULL DEFAULT '',
	goals            TEXT[] NOT NULL DEFAULT '{}',
	competition_level TEXT NOT NULL DEFAULT '',
	role             TEXT NOT NULL DEFAULT '',
	minutes_context  TEXT NOT NULL DEFAULT '',
	coach_notes      TEXT NOT NULL DEFAULT '',
	parent_notes     TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS player_games (
	id         TEXT PRIMARY KEY,
	player_id  TEXT NOT NULL REFERENCES players(id),
	game_date  TIMESTAMPTZ NOT NULL,
	opponent   TEXT NOT NULL DEFAULT '',
	game_label TEXT NOT NULL DEFAULT '',
	minutes    INT NOT NULL DEFAULT 0,
	pts        INT NOT NULL DEFAULT 0,
	reb        INT NOT NULL DEFAULT 0,
	ast        INT NOT NULL DEFAULT 0,
	stl        INT NOT NULL DEFAULT 0,
	blk        INT NOT NULL DEFAULT 0,
	tov        INT NOT NULL DEFAULT 0,
	fgm        INT NOT NULL DEFAULT 0,
	fga        INT NOT NULL DEFAULT 0,
	tpm        INT NOT NULL DEFAULT 0,
	tpa        INT NOT NULL DEFAULT 0,
	ftm        INT NOT NULL DEFAULT 0,
	fta        INT NOT NULL DEFAULT 0,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS player_games_player_date ON player_games (player_id, game_date DESC);

CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	player_id      TEXT NOT NULL REFERENCES players(id),
	game_ids       TEXT[] NOT NULL DEFAULT '{}',
	fingerprint    TEXT NOT NULL,
	status         TEXT NOT NULL,
	report_window  TEXT NOT NULL DEFAULT '',
	content        JSONB,
	error_text     TEXT NOT NULL DEFAULT '',
	model_used     TEXT NOT NULL DEFAULT '',
	prompt_version TEXT NOT NULL DEFAULT '',
	share_token    TEXT NOT NULL UNIQUE,
	correlation_id TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reports_player_created ON reports (player_id, created_at DESC);
CREATE INDEX IF NOT EXISTS reports_fingerprint ON reports (fingerprint);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresReportStore implements ReportStore on postgres. Status transitions
// are enforced in SQL with conditional updates, so concurrent writers cannot
// move a report out of a terminal status.
type PostgresReportStore struct {
	pool *Pool
}

// NewPostgresReportStore creates a postgres-backed report store.
func NewPostgresReportStore(pool *Pool) *PostgresReportStore {
	return &PostgresReportStore{pool: pool}
}

var _ ReportStore = (*PostgresReportStore)(nil)

const reportColumns = `id, player_id, game_ids, fingerprint, status, report_window,
	COALESCE(content, 'null'::jsonb), error_text, model_used, prompt_version,
	share_token, correlation_id, created_at`

func (s *PostgresReportStore) Create(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (
			id, player_id, game_ids, fingerprint, status, report_window,
			error_text, model_used, prompt_version, share_token, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, query,
		report.ID,
		report.PlayerID,
		report.GameIDs,
		report.Fingerprint,
		string(report.Status),
		report.ReportWindow,
		report.ErrorText,
		report.ModelUsed,
		report.PromptVersion,
		report.ShareToken,
		report.CorrelationID,
		report.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) Get(ctx context.Context, id string) (*model.Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

func (s *PostgresReportStore) GetByShareToken(ctx context.Context, token string) (*model.Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE share_token = $1`, token)
	return scanReport(row)
}

func (s *PostgresReportStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE player_id = $1 ORDER BY created_at DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*model.Report
	for rows.Next() {
		report, scanErr := scanReport(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (s *PostgresReportStore) MarkGenerating(ctx context.Context, id string) error {
	query := `UPDATE reports SET status = $2 WHERE id = $1 AND status = $3`
	return s.conditionalUpdate(ctx, id, query, id, string(model.StatusGenerating), string(model.StatusPending))
}

func (s *PostgresReportStore) Complete(ctx context.Context, id string, content json.RawMessage, modelUsed string) error {
	query := `
		UPDATE reports SET status = $2, content = $3, model_used = $4, error_text = ''
		WHERE id = $1 AND status = ANY($5)
	`
	from := []string{string(model.StatusPending), string(model.StatusGenerating)}
	return s.conditionalUpdate(ctx, id, query, id, string(model.StatusCompleted), []byte(content), modelUsed, from)
}

func (s *PostgresReportStore) Fail(ctx context.Context, id string, errText string) error {
	query := `
		UPDATE reports SET status = $2, error_text = $3
		WHERE id = $1 AND status = ANY($4)
	`
	from := []string{string(model.StatusPending), string(model.StatusGenerating)}
	return s.conditionalUpdate(ctx, id, query, id, string(model.StatusFailed), errText, from)
}

func (s *PostgresReportStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

// conditionalUpdate runs a status-guarded update and maps a zero row count to
// the reason it matched nothing.
func (s *PostgresReportStore) conditionalUpdate(ctx context.Context, id, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check report exists: %w", err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrTerminalState
}

func scanReport(row pgx.Row) (*model.Report, error) {
	var r model.Report
	var status string
	var content []byte
	err := row.Scan(
		&r.ID, &r.PlayerID, &r.GameIDs, &r.Fingerprint, &status, &r.ReportWindow,
		&content, &r.ErrorText, &r.ModelUsed, &r.PromptVersion,
		&r.ShareToken, &r.CorrelationID, &r.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.Status = model.ReportStatus(status)
	if string(content) != "null" {
		r.Content = content
	}
	return &r, nil
}

// PostgresPlayerStore implements PlayerStore on postgres.
type PostgresPlayerStore struct {
	pool *Pool
}

// NewPostgresPlayerStore creates a postgres-backed player store.
func NewPostgresPlayerStore(pool *Pool) *PostgresPlayerStore {
	return &PostgresPlayerStore{pool: pool}
}

var _ PlayerStore = (*PostgresPlayerStore)(nil)

func (s *PostgresPlayerStore) CreatePlayer(ctx context.Context, player *model.Player) error {
	query := `
		INSERT INTO players (
			id, owner_id, name, grade, position, height, team, goals,
			competition_level, role, minutes_context, coach_notes, parent_notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.pool.Exec(ctx, query,
		player.ID, player.OwnerID, player.Name, player.Grade, player.Position,
		player.Height, player.Team, player.Goals, player.CompetitionLevel,
		player.Role, player.MinutesContext, player.CoachNotes, player.ParentNotes,
		player.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *PostgresPlayerStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	query := `
		SELECT id, owner_id, name, grade, position, height, team, goals,
			competition_level, role, minutes_context, coach_notes, parent_notes, created_at
		FROM players WHERE id = $1
	`
	var p model.Player
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Grade, &p.Position, &p.Height, &p.Team,
		&p.Goals, &p.CompetitionLevel, &p.Role, &p.MinutesContext,
		&p.CoachNotes, &p.ParentNotes, &p.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func (s *PostgresPlayerStore) AddGame(ctx context.Context, game *model.PlayerGame) error {
	query := `
		INSERT INTO player_games (
			id, player_id, game_date, opponent, game_label, minutes,
			pts, reb, ast, stl, blk, tov, fgm, fga, tpm, tpa, ftm, fta, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := s.pool.Exec(ctx, query,
		game.ID, game.PlayerID, game.GameDate, game.Opponent, game.GameLabel,
		game.Minutes, game.PTS, game.REB, game.AST, game.STL, game.BLK, game.TOV,
		game.FGM, game.FGA, game.TPM, game.TPA, game.FTM, game.FTA, game.Notes,
		game.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *PostgresPlayerStore) ListGames(ctx context.Context, playerID string, limit int) ([]model.PlayerGame, error) {
	if _, err := s.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, player_id, game_date, opponent, game_label, minutes,
			pts, reb, ast, stl, blk, tov, fgm, fga, tpm, tpa, ftm, fta, notes, created_at
		FROM player_games WHERE player_id = $1 ORDER BY game_date DESC
	`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []model.PlayerGame
	for rows.Next() {
		var g model.PlayerGame
		if err := rows.Scan(
			&g.ID, &g.PlayerID, &g.GameDate, &g.Opponent, &g.GameLabel,
			&g.Minutes, &g.PTS, &g.REB, &g.AST, &g.STL, &g.BLK, &g.TOV,
			&g.FGM, &g.FGA, &g.TPM, &g.TPA, &g.FTM, &g.FTA, &g.Notes, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresPlayerStore) CountPlayers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}
