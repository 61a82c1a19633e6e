// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hooplab/passport/internal/domain/model"
)

// reportResponse mirrors the wire shape for a report in any status. Content
// is present only once the report completed.
type reportResponse struct {
	ReportID      string          `json:"report_id"`
	PlayerID      string          `json:"player_id"`
	Status        string          `json:"status"`
	ReportWindow  string          `json:"report_window,omitempty"`
	PromptVersion string          `json:"prompt_version,omitempty"`
	ModelUsed     string          `json:"model_used,omitempty"`
	ShareToken    string          `json:"share_token,omitempty"`
	Error         string          `json:"error,omitempty"`
	Content       json.RawMessage `json:"content,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toReportResponse(r *model.Report, includeToken bool) reportResponse {
	resp := reportResponse{
		ReportID:      r.ID,
		PlayerID:      r.PlayerID,
		Status:        string(r.Status),
		ReportWindow:  r.ReportWindow,
		PromptVersion: r.PromptVersion,
		ModelUsed:     r.ModelUsed,
		Error:         r.ErrorText,
		CreatedAt:     r.CreatedAt,
	}
	if includeToken {
		resp.ShareToken = r.ShareToken
	}
	if r.Status == model.StatusCompleted {
		resp.Content = r.Content
	}
	return resp
}

// acceptResponse acknowledges an accepted generation request.
type acceptResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
}

// ReportsHandler serves report reads by ID.
type ReportsHandler struct {
	deps Dependencies
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(deps Dependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// HandleGetReport handles GET /reports/{report_id}. Callers poll this until
// the status is completed or failed.
func (h *ReportsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/reports/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	report, err := h.deps.GetReport(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report, true))
}
