package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"onehandcoder/internal/apperror"
)

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 1 << 20

var (
	// ErrInvalidRequest is returned for bodies that are not valid JSON.
	ErrInvalidRequest = apperror.Validation("Invalid request format")
	// ErrRequestTooLarge is returned for bodies over MaxBodyBytes.
	ErrRequestTooLarge = apperror.TooLarge("Request body too large")
)

// LimitBody caps the request body at MaxBodyBytes. Reads past the cap fail
// with *http.MaxBytesError.
func LimitBody(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	}
}

// ReadError maps a body read failure onto a client error.
func ReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrRequestTooLarge
	}
	return ErrInvalidRequest
}

// DecodeJSON decodes the request body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return ReadError(err)
}
