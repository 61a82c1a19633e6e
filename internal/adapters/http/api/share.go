package api

import (
	"net/http"
	"strings"
)

// ShareHandler serves completed reports through their opaque share token.
type ShareHandler struct {
	deps Dependencies
}

// NewShareHandler creates a share handler.
func NewShareHandler(deps Dependencies) *ShareHandler {
	return &ShareHandler{deps: deps}
}

// HandleGetShared handles GET /share/{token}. Only completed reports resolve;
// anything else looks exactly like an unknown token.
func (h *ShareHandler) HandleGetShared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/share/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	report, err := h.deps.GetSharedReport(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// The share view never exposes the token itself.
	writeJSON(w, http.StatusOK, toReportResponse(report, false))
}
