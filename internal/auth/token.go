package auth

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

type userIDKey struct{}

// ExtractToken picks the candidate token of a request. The Authorization
// header wins, with an optional "Bearer " prefix stripped; then a "token"
// field of a JSON body; then the "token" query parameter. Returns "" when
// none is present.
func ExtractToken(authHeader string, body []byte, query url.Values) string {
	if header := strings.TrimSpace(authHeader); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return header
	}

	if len(body) > 0 {
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Token != "" {
			return payload.Token
		}
	}

	return query.Get("token")
}

// WithUserID attaches the resolved identity to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the identity attached by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey{}).(string)
	return userID, ok && userID != ""
}
