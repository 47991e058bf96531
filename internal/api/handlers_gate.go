package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/account-safety/internal/types"
)

// handleCanPerformAction handles GET /api/accounts/{accountId}/gate/{actionType}.
// A denial is a 200 with allowed=false: the gate answered the question.
func (s *Server) handleCanPerformAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["accountId"]
	actionType := types.ActionType(vars["actionType"])

	decision, err := s.controller.CanPerformAction(r.Context(), accountID, actionType)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// handleRecordAction handles POST /api/accounts/{accountId}/actions
func (s *Server) handleRecordAction(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	var req struct {
		ActionType string `json:"actionType"`
		Success    bool   `json:"success"`
		Error      string `json:"error,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	err := s.controller.RecordAction(r.Context(), accountID, types.ActionType(req.ActionType), req.Success, req.Error)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleRecentActions handles GET /api/accounts/{accountId}/actions/recent
func (s *Server) handleRecentActions(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	limit, ok := parseLimitQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a non-negative integer", nil)
		return
	}

	entries, err := s.controller.RecentActions(r.Context(), accountID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId": accountID,
		"actions":   entries,
	})
}

// handleConnectionAccepted handles POST /api/accounts/{accountId}/connections/accepted
func (s *Server) handleConnectionAccepted(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	if err := s.controller.RecordConnectionAccepted(r.Context(), accountID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleUpdatePendingInvitations handles PUT /api/accounts/{accountId}/pending-invitations
func (s *Server) handleUpdatePendingInvitations(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	var req struct {
		Count int `json:"count"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	if err := s.controller.UpdatePendingInvitations(r.Context(), accountID, req.Count); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleTodayUsage handles GET /api/accounts/{accountId}/usage/today
func (s *Server) handleTodayUsage(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	usage, err := s.controller.TodayUsage(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// handleWeekUsage handles GET /api/accounts/{accountId}/usage/week
func (s *Server) handleWeekUsage(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	usage, err := s.controller.WeekUsage(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// handleNextDelay handles GET /api/accounts/{accountId}/delay
func (s *Server) handleNextDelay(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	delay, err := s.controller.NextDelay(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":    accountID,
		"delaySeconds": int(delay.Seconds()),
	})
}

// handleBatchStatus handles GET /api/accounts/{accountId}/batch
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	due, pause, err := s.controller.ShouldTakeBatchBreak(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	state := s.controller.BatchState(accountID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":          accountID,
		"breakDue":           due,
		"breakPauseSeconds":  int(pause.Seconds()),
		"consecutiveActions": state.ConsecutiveActionsSinceBreak,
	})
}

// handleRecordForBatch handles POST /api/accounts/{accountId}/batch/record
func (s *Server) handleRecordForBatch(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	// Batch state is in-process and needs no profile lookup.
	s.controller.RecordActionForBatch(accountID)
	respondJSON(w, http.StatusNoContent, nil)
}

// handleResetBatch handles POST /api/accounts/{accountId}/batch/reset
func (s *Server) handleResetBatch(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	s.controller.ResetBatchCounter(accountID)
	respondJSON(w, http.StatusNoContent, nil)
}
