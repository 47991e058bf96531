package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/account-safety/internal/safety"
	"github.com/account-safety/internal/types"
)

// handleInitializeAccount handles POST /api/accounts
func (s *Server) handleInitializeAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID       string `json:"accountId"`
		AccountType     string `json:"accountType"`
		ConnectionCount int    `json:"connectionCount"`
		AccountAgeDays  int    `json:"accountAgeDays"`
		SSIScore        *int   `json:"ssiScore,omitempty"`
		EnableWarmUp    bool   `json:"enableWarmUp"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	profile, err := s.controller.InitializeAccount(r.Context(), &safety.InitializeAccountInput{
		AccountID:       req.AccountID,
		AccountType:     types.AccountType(req.AccountType),
		ConnectionCount: req.ConnectionCount,
		AccountAgeDays:  req.AccountAgeDays,
		SSIScore:        req.SSIScore,
		EnableWarmUp:    req.EnableWarmUp,
	})
	if err != nil {
		s.logger.WithError(err).Warn("InitializeAccount failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, profile)
}

// handleGetProfile handles GET /api/accounts/{accountId}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	profile, err := s.controller.GetProfile(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// handleGetEffectiveLimits handles GET /api/accounts/{accountId}/limits
func (s *Server) handleGetEffectiveLimits(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	limits, err := s.controller.EffectiveLimits(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, limits)
}

// handleSetWarmUp handles PUT /api/accounts/{accountId}/warmup
func (s *Server) handleSetWarmUp(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	if err := s.controller.SetWarmUpEnabled(r.Context(), accountID, req.Enabled); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// handleWarmUpProgress handles GET /api/accounts/{accountId}/warmup
func (s *Server) handleWarmUpProgress(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	progress, err := s.controller.WarmUpProgress(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// handleRecommendations handles GET /api/accounts/{accountId}/recommendations
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	recommendations, err := s.controller.SafetyRecommendations(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":       accountID,
		"recommendations": recommendations,
	})
}

// parseLimitQuery reads an optional positive ?limit= query parameter.
func parseLimitQuery(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}
