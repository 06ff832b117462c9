package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
)

// Envelope is the uniform response wrapper. Status 1 means success; status
// 0 is paired with an HTTP error code and an empty data object.
type Envelope struct {
	Status   int         `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// respondOK writes a success envelope.
func respondOK(w http.ResponseWriter, message string, data, metadata interface{}) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, http.StatusOK, Envelope{Status: 1, Message: message, Data: data, Metadata: metadata})
}

// respondCreated writes a success envelope with 201.
func respondCreated(w http.ResponseWriter, message string, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, http.StatusCreated, Envelope{Status: 1, Message: message, Data: data})
}

// respondError converts an error to the failure envelope. Unclassified
// errors are logged with context and surfaced as internal errors.
func respondError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Envelope{Status: 0, Message: apperr.Message(err), Data: struct{}{}})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.Validation, "invalid request body")
	}
	return nil
}
