// Package api holds the JSON request and response helpers shared by every
// route.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"onehandcoder/internal/apperror"
	"onehandcoder/internal/auth"
	"onehandcoder/internal/logging"
)

// Body is a success envelope. Fields are merged into the top level object.
type Body map[string]interface{}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// OK writes a 200 envelope with success=true and the given fields.
func OK(w http.ResponseWriter, fields Body) {
	body := Body{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}

// Writer renders errors, logging unexpected ones.
type Writer struct {
	Logger        *slog.Logger
	ExposeDetails bool
}

// Error writes the failure envelope for err. Coded client errors use their
// own message; anything else becomes a 500 carrying fallback.
func (wr *Writer) Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperror.HTTPStatus(err)
	if status != http.StatusInternalServerError {
		JSON(w, status, errorBody{Message: apperror.Message(err)})
		return
	}

	logging.LogError(logging.FromContext(r.Context(), wr.Logger), fallback, err)

	body := errorBody{Message: fallback}
	if wr.ExposeDetails {
		body.Error = err.Error()
	}
	JSON(w, status, body)
}

// UserID returns the identity attached by the auth middleware, writing a 401
// when there is none.
func (wr *Writer) UserID(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		wr.Error(w, r, apperror.Unauthorized("Unauthorized: token missing"), fallback)
		return "", false
	}
	return userID, true
}
