package api

import (
	"database/sql"
	"net/http"

	"github.com/lovrop/najdeno/internal/match"
	"github.com/lovrop/najdeno/internal/task"
)

// MatchesHandler handles match discovery and claim verification endpoints.
type MatchesHandler struct {
	DB     *sql.DB
	Tasks  task.Submitter
	Config match.Config
	Items  *ItemsHandler
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// List handles GET /api/items/{id}/matches: re-runs discovery and returns the
// ranked candidate list for the caller's own report.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	item, ok := h.Items.loadOwnedItem(w, r)
	if !ok {
		return
	}

	matches, err := match.FindMatches(r.Context(), h.DB, item, h.Config)
	if err != nil {
		matchError(w, err)
		return
	}
	h.Items.notifyMatches(item, matches)

	if matches == nil {
		matches = []match.Candidate{}
	}
	jsonResponse(w, http.StatusOK, matches)
}

// Question handles GET /api/matches/{id}/question.
func (h *MatchesHandler) Question(w http.ResponseWriter, r *http.Request) {
	question, err := match.SecurityQuestion(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		matchError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"question": question})
}

// Answer handles POST /api/items/{id}/matches/{matchID}/answer: verifies the
// claimant's security answer and, on success, promotes both reports.
func (h *MatchesHandler) Answer(w http.ResponseWriter, r *http.Request) {
	item, ok := h.Items.loadOwnedItem(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verified, err := match.VerifyAnswer(r.Context(), h.DB, item.ID, r.PathValue("matchID"), req.Answer, h.Config)
	if err != nil {
		matchError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, verifyResponse{Verified: verified})
}
