package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"socialfeed/internal/app"
	"socialfeed/internal/util"
)

// errorBody is the uniform error envelope. The HTTP status is mirrored in
// code so clients can log the envelope alone.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorDetails(w, r, status, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    status,
		Message: msg,
		Path:    r.URL.Path,
		Details: details,
	}})
}

// writeAppError maps the application error taxonomy onto HTTP statuses.
// Unexpected errors are logged and reported as a plain 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *app.ValidationError
	switch {
	case errors.As(err, &validation):
		writeErrorDetails(w, r, http.StatusUnprocessableEntity, "invalid input", validation.Fields)
	case errors.Is(err, app.ErrAccountNotFound), errors.Is(err, app.ErrPostNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNotPostAuthor):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", util.RequestIDFromRequest(r),
			"err", err,
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
