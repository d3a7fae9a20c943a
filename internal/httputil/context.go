package httputil

import (
	"context"
	"net/http"
)

type userIDKey struct{}

// ContextWithUserID attaches the acting user to ctx.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the acting user, or "" when none was attached.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// WithUserID returns r carrying userID
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(ContextWithUserID(r.Context(), userID))
}

// GetUserID returns the user set by the auth middleware
func GetUserID(r *http.Request) string {
	return UserIDFromContext(r.Context())
}
