package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/hooplab/passport/internal/domain/model"
)

// MemoryReportStore keeps reports in process memory. It backs tests and
// single-instance deployments without postgres.
type MemoryReportStore struct {
	mu       sync.RWMutex
	reports  map[string]*model.Report
	byToken  map[string]string // share token -> report ID
	byPlayer map[string][]string
}

// NewMemoryReportStore creates an empty in-memory report store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{
		reports:  make(map[string]*model.Report),
		byToken:  make(map[string]string),
		byPlayer: make(map[string][]string),
	}
}

var _ ReportStore = (*MemoryReportStore)(nil)

func (s *MemoryReportStore) Create(_ context.Context, report *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return ErrDuplicateKey
	}
	if report.ShareToken != "" {
		if _, exists := s.byToken[report.ShareToken]; exists {
			return ErrDuplicateKey
		}
		s.byToken[report.ShareToken] = report.ID
	}

	stored := cloneReport(report)
	s.reports[report.ID] = stored
	s.byPlayer[report.PlayerID] = append(s.byPlayer[report.PlayerID], report.ID)
	return nil
}

func (s *MemoryReportStore) Get(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneReport(report), nil
}

func (s *MemoryReportStore) GetByShareToken(_ context.Context, token string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneReport(s.reports[id]), nil
}

func (s *MemoryReportStore) ListByPlayer(_ context.Context, playerID string, limit int) ([]*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPlayer[playerID]
	out := make([]*model.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneReport(s.reports[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryReportStore) MarkGenerating(_ context.Context, id string) error {
	return s.transition(id, model.StatusGenerating, func(*model.Report) {})
}

func (s *MemoryReportStore) Complete(_ context.Context, id string, content json.RawMessage, modelUsed string) error {
	return s.transition(id, model.StatusCompleted, func(r *model.Report) {
		r.Content = append(json.RawMessage(nil), content...)
		r.ModelUsed = modelUsed
		r.ErrorText = ""
	})
}

func (s *MemoryReportStore) Fail(_ context.Context, id string, errText string) error {
	return s.transition(id, model.StatusFailed, func(r *model.Report) {
		r.ErrorText = errText
	})
}

func (s *MemoryReportStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.reports)), nil
}

func (s *MemoryReportStore) transition(id string, to model.ReportStatus, apply func(*model.Report)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return model.ErrNotFound
	}
	if !report.Status.CanTransition(to) {
		return model.ErrTerminalState
	}
	report.Status = to
	apply(report)
	return nil
}

func cloneReport(r *model.Report) *model.Report {
	clone := *r
	clone.GameIDs = append([]string(nil), r.GameIDs...)
	clone.Content = append(json.RawMessage(nil), r.Content...)
	return &clone
}

// MemoryPlayerStore keeps players and game logs in process memory.
type MemoryPlayerStore struct {
	mu      sync.RWMutex
	players map[string]*model.Player
	games   map[string][]model.PlayerGame
}

// NewMemoryPlayerStore creates an empty in-memory player store.
func NewMemoryPlayerStore() *MemoryPlayerStore {
	return &MemoryPlayerStore{
		players: make(map[string]*model.Player),
		games:   make(map[string][]model.PlayerGame),
	}
}

var _ PlayerStore = (*MemoryPlayerStore)(nil)

func (s *MemoryPlayerStore) CreatePlayer(_ context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; exists {
		return ErrDuplicateKey
	}
	clone := *player
	clone.Goals = append([]string(nil), player.Goals...)
	s.players[player.ID] = &clone
	return nil
}

func (s *MemoryPlayerStore) GetPlayer(_ context.Context, id string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	clone := *player
	clone.Goals = append([]string(nil), player.Goals...)
	return &clone, nil
}

func (s *MemoryPlayerStore) AddGame(_ context.Context, game *model.PlayerGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[game.PlayerID]; !exists {
		return model.ErrNotFound
	}
	s.games[game.PlayerID] = append(s.games[game.PlayerID], *game)
	return nil
}

func (s *MemoryPlayerStore) ListGames(_ context.Context, playerID string, limit int) ([]model.PlayerGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.players[playerID]; !exists {
		return nil, model.ErrNotFound
	}
	games := append([]model.PlayerGame(nil), s.games[playerID]...)
	sort.Slice(games, func(i, j int) bool {
		return games[i].GameDate.After(games[j].GameDate)
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

func (s *MemoryPlayerStore) CountPlayers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.players)), nil
}
