package handler

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var userIDKey = contextKey{}

// UserIDFromContext returns the authenticated user id set by requireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// requireAuth validates the bearer access token and stores its subject in the
// request context.
func (h *AuthHTTPHandler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missingAuthorizationHeader"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalidAuthorizationHeader"})
			return
		}

		subject, err := h.codec.Validate(parts[1])
		if err != nil {
			h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalidAccessToken"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
