package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// detailer is implemented by errors that carry structured data for the client.
type detailer interface {
	Details() any
}

// StatusFor maps an error to the HTTP status of its kind.
func StatusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrState:
		return http.StatusConflict
	case apperr.ErrDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	} else {
		log.Debugf("request rejected (%d): %v", status, err)
	}
	resp := ErrorResponse{Error: err.Error()}
	var d detailer
	if errors.As(err, &d) {
		resp.Details = d.Details()
	}
	WriteJSON(w, status, resp)
}

func WriteBadRequest(w http.ResponseWriter, msg string, details any) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Details: details})
}

// DecodeJSON decodes the request body into dst and answers 400 when it is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid request body format", err.Error())
		return false
	}
	return true
}
