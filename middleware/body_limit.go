package middleware

import (
	"net/http"

	"onehandcoder/internal/api"
)

// LimitBody caps every request body at api.MaxBodyBytes.
func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.LimitBody(w, r)
		next.ServeHTTP(w, r)
	})
}
