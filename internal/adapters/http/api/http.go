// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hooplab/passport/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Player registry operations.
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	AddGame(ctx context.Context, game *model.PlayerGame) error
	ListGames(ctx context.Context, playerID string, limit int) ([]model.PlayerGame, error)

	// Report operations. RequestReport returns a pending report that
	// callers poll via GetReport; an empty gameIDs selects the player's
	// most recent games.
	RequestReport(ctx context.Context, playerID string, gameIDs []string) (*model.Report, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	GetSharedReport(ctx context.Context, token string) (*model.Report, error)
	ListReports(ctx context.Context, playerID string, limit int) ([]*model.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playersHandler *PlayersHandler
	reportsHandler *ReportsHandler
	shareHandler   *ShareHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		playersHandler: NewPlayersHandler(deps),
		reportsHandler: NewReportsHandler(deps),
		shareHandler:   NewShareHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/players", MetricsMiddleware(s.playersHandler.HandlePlayers, "players"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playersHandler.HandlePlayer, "players"))
	mux.HandleFunc("/reports/", MetricsMiddleware(s.reportsHandler.HandleGetReport, "reports"))
	mux.HandleFunc("/share/", MetricsMiddleware(s.shareHandler.HandleGetShared, "share"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps the domain error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrInsufficientData):
		writeError(w, http.StatusBadRequest, "insufficient_data", err)
	case errors.Is(err, model.ErrInvalidGame):
		writeError(w, http.StatusBadRequest, "invalid_game", err)
	case errors.Is(err, model.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, model.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "busy", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
