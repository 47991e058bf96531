package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError maps a categorized error onto the wire. Internal causes
// are logged upstream but never leaked to clients.
func respondServiceError(w http.ResponseWriter, err error) {
	svcErr := apperrors.Categorize(err).ToServiceError()
	statusCode := apperrors.GetHTTPStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		svcErr.Message = "An internal error occurred"
	}
	respondError(w, statusCode, svcErr.Code, svcErr.Message, svcErr.Details)
}
