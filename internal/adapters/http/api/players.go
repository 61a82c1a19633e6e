package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hooplab/passport/internal/domain/model"
)

const defaultGameListLimit = 25

// createPlayerRequest is the POST /players body.
type createPlayerRequest struct {
	OwnerID          string   `json:"owner_id"`
	Name             string   `json:"name"`
	Grade            string   `json:"grade"`
	Position         string   `json:"position"`
	Height           string   `json:"height"`
	Team             string   `json:"team"`
	Goals            []string `json:"goals"`
	CompetitionLevel string   `json:"competition_level"`
	Role             string   `json:"role"`
	MinutesContext   string   `json:"minutes_context"`
	CoachNotes       string   `json:"coach_notes"`
	ParentNotes      string   `json:"parent_notes"`
}

// addGameRequest is the POST /players/{id}/games body.
type addGameRequest struct {
	GameDate  time.Time `json:"game_date"`
	Opponent  string    `json:"opponent"`
	GameLabel string    `json:"game_label"`
	Minutes   int       `json:"minutes"`
	PTS       int       `json:"pts"`
	REB       int       `json:"reb"`
	AST       int       `json:"ast"`
	STL       int       `json:"stl"`
	BLK       int       `json:"blk"`
	TOV       int       `json:"tov"`
	FGM       int       `json:"fgm"`
	FGA       int       `json:"fga"`
	TPM       int       `json:"tpm"`
	TPA       int       `json:"tpa"`
	FTM       int       `json:"ftm"`
	FTA       int       `json:"fta"`
	Notes     string    `json:"notes"`
}

// requestReportRequest is the optional POST /players/{id}/reports body. A
// caller may pin the exact games the report covers.
type requestReportRequest struct {
	GameIDs []string `json:"game_ids"`
}

// PlayersHandler serves the player profile and game log endpoints.
type PlayersHandler struct {
	deps Dependencies
}

// NewPlayersHandler creates a players handler.
func NewPlayersHandler(deps Dependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandlePlayers handles POST /players.
func (h *PlayersHandler) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errMissingName)
		return
	}

	player := &model.Player{
		OwnerID:          req.OwnerID,
		Name:             req.Name,
		Grade:            req.Grade,
		Position:         req.Position,
		Height:           req.Height,
		Team:             req.Team,
		Goals:            req.Goals,
		CompetitionLevel: req.CompetitionLevel,
		Role:             req.Role,
		MinutesContext:   req.MinutesContext,
		CoachNotes:       req.CoachNotes,
		ParentNotes:      req.ParentNotes,
	}
	if err := h.deps.CreatePlayer(r.Context(), player); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

// HandlePlayer routes everything under /players/{player_id}:
//
//	GET  /players/{id}          profile
//	POST /players/{id}/games    append a game stat line
//	GET  /players/{id}/games    recent games, newest first
//	POST /players/{id}/reports  request a development report
//	GET  /players/{id}/reports  report history, newest first
func (h *PlayersHandler) HandlePlayer(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/players/")
	parts := strings.SplitN(rest, "/", 2)
	playerID := parts[0]
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.getPlayer(w, r, playerID)
	case sub == "games" && r.Method == http.MethodPost:
		h.addGame(w, r, playerID)
	case sub == "games" && r.Method == http.MethodGet:
		h.listGames(w, r, playerID)
	case sub == "reports" && r.Method == http.MethodPost:
		h.requestReport(w, r, playerID)
	case sub == "reports" && r.Method == http.MethodGet:
		h.listReports(w, r, playerID)
	default:
		http.NotFound(w, r)
	}
}

func (h *PlayersHandler) getPlayer(w http.ResponseWriter, r *http.Request, playerID string) {
	player, err := h.deps.GetPlayer(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *PlayersHandler) addGame(w http.ResponseWriter, r *http.Request, playerID string) {
	var req addGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	game := &model.PlayerGame{
		PlayerID:  playerID,
		GameDate:  req.GameDate,
		Opponent:  req.Opponent,
		GameLabel: req.GameLabel,
		Minutes:   req.Minutes,
		PTS:       req.PTS,
		REB:       req.REB,
		AST:       req.AST,
		STL:       req.STL,
		BLK:       req.BLK,
		TOV:       req.TOV,
		FGM:       req.FGM,
		FGA:       req.FGA,
		TPM:       req.TPM,
		TPA:       req.TPA,
		FTM:       req.FTM,
		FTA:       req.FTA,
		Notes:     req.Notes,
	}
	if err := h.deps.AddGame(r.Context(), game); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *PlayersHandler) listGames(w http.ResponseWriter, r *http.Request, playerID string) {
	games, err := h.deps.ListGames(r.Context(), playerID, defaultGameListLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *PlayersHandler) requestReport(w http.ResponseWriter, r *http.Request, playerID string) {
	// The body is optional: absent or empty game_ids means the most
	// recent games.
	var req requestReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	report, err := h.deps.RequestReport(r.Context(), playerID, req.GameIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptResponse{
		ReportID: report.ID,
		Status:   string(report.Status),
	})
}

func (h *PlayersHandler) listReports(w http.ResponseWriter, r *http.Request, playerID string) {
	reports, err := h.deps.ListReports(r.Context(), playerID, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportResponse(rep, true))
	}
	writeJSON(w, http.StatusOK, out)
}
