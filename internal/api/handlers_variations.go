package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/account-safety/internal/types"
)

// handleCreateVariations handles POST /api/accounts/{accountId}/variations
func (s *Server) handleCreateVariations(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	var req struct {
		OriginalMessage string   `json:"originalMessage"`
		VariantTexts    []string `json:"variantTexts,omitempty"`
		Policy          string   `json:"policy,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	set, err := s.rotator.CreateVariations(r.Context(), accountID, req.OriginalMessage,
		req.VariantTexts, types.RotationPolicy(req.Policy))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, set)
}

// handleListVariations handles GET /api/accounts/{accountId}/variations
func (s *Server) handleListVariations(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	sets, err := s.rotator.ListVariations(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":  accountID,
		"variations": sets,
	})
}

// handleNextVariation handles GET /api/accounts/{accountId}/variations/{variationId}/next
func (s *Server) handleNextVariation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	selection, err := s.rotator.NextVariation(r.Context(), vars["accountId"], vars["variationId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, selection)
}

// handleRecordVariationUsage handles POST /api/accounts/{accountId}/variations/{variationId}/usage
func (s *Server) handleRecordVariationUsage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		VariantIndex int    `json:"variantIndex"`
		Outcome      string `json:"outcome"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body", nil)
		return
	}

	err := s.rotator.RecordUsage(r.Context(), vars["accountId"], vars["variationId"],
		req.VariantIndex, types.VariationOutcome(req.Outcome))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleVariationStats handles GET /api/accounts/{accountId}/variations/{variationId}/stats
func (s *Server) handleVariationStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	stats, err := s.rotator.Stats(r.Context(), vars["accountId"], vars["variationId"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"variationId": vars["variationId"],
		"stats":       stats,
	})
}

// handleDeleteVariations handles DELETE /api/accounts/{accountId}/variations/{variationId}
func (s *Server) handleDeleteVariations(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.rotator.DeleteVariations(r.Context(), vars["accountId"], vars["variationId"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
