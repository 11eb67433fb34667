// Package apperror defines the error codes handlers translate into HTTP
// responses.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

const (
	CodeValidation   = "VALIDATION"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTooLarge     = "TOO_LARGE"
	CodeInternal     = "INTERNAL"
)

// Validation reports missing or malformed input.
func Validation(message string) error {
	return oops.Code(CodeValidation).Errorf("%s", message)
}

// Unauthorized reports a missing or rejected token.
func Unauthorized(message string) error {
	return oops.Code(CodeUnauthorized).Errorf("%s", message)
}

// NotFound reports that a resolved identity has no backing record.
func NotFound(message string) error {
	return oops.Code(CodeNotFound).Errorf("%s", message)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) error {
	return oops.Code(CodeConflict).Errorf("%s", message)
}

// TooLarge reports a request body over the accepted size.
func TooLarge(message string) error {
	return oops.Code(CodeTooLarge).Errorf("%s", message)
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) error {
	return oops.Code(CodeInternal).Wrapf(err, "%s", message)
}

// Code returns the error code carried by err, or CodeInternal.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := fmt.Sprint(oopsErr.Code()); code != "" && code != "<nil>" {
			return code
		}
	}
	return CodeInternal
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation, CodeConflict:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of a coded error.
func Message(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}
