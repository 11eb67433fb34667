package middleware

import (
	"bytes"
	"io"
	"net/http"

	"onehandcoder/internal/api"
	"onehandcoder/internal/apperror"
	"onehandcoder/internal/auth"
)

var (
	ErrTokenMissing = apperror.Unauthorized("Unauthorized: token missing")
	ErrTokenInvalid = apperror.Unauthorized("Unauthorized: invalid token")
)

// TokenVerifier resolves a token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Middleware struct {
	Tokens TokenVerifier
	Errors *api.Writer
}

func NewMiddleware(tokens TokenVerifier, errors *api.Writer) *Middleware {
	return &Middleware{Tokens: tokens, Errors: errors}
}

// AuthMiddleware rejects requests without a valid token and attaches the
// resolved user id to the request context otherwise.
func (m *Middleware) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := peekBody(w, r)
		if err != nil {
			m.Errors.Error(w, r, api.ReadError(err), "")
			return
		}

		token := auth.ExtractToken(r.Header.Get("Authorization"), body, r.URL.Query())
		if token == "" {
			m.Errors.Error(w, r, ErrTokenMissing, "")
			return
		}

		userID, err := m.Tokens.Verify(token)
		if err != nil {
			m.Errors.Error(w, r, ErrTokenInvalid, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

// peekBody reads the body, capped at api.MaxBodyBytes, and puts an identical
// reader back for the handler.
func peekBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	api.LimitBody(w, r)
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
