package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"samaj/internal/apperrors"
)

type apiEnvelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// RespondWithJSON writes a success envelope around data.
func RespondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiEnvelope{Success: true, StatusCode: status, Data: data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// SendJSONError writes a failure envelope with an explicit status and message.
func SendJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiEnvelope{Success: false, StatusCode: status, Message: message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON error response")
	}
}

// RespondWithError renders any service error through the apperrors mapping.
func RespondWithError(w http.ResponseWriter, err error) {
	status := apperrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	SendJSONError(w, apperrors.MessageOf(err), status)
}
