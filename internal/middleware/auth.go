package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// Identity is the authentication signal consumed by the cart flow: an
// "is authenticated" boolean plus an opaque user identifier. The core
// never inspects credentials; it only asks this question.
type Identity struct {
	UserID        string
	Authenticated bool
}

// SessionAuth resolves the X-Session-Token header to a user identity
// and stores it in the request context. Unlike an API gate, it never
// rejects: anonymous browsing is allowed, and the absence of a valid
// token simply means the request is unauthenticated.
//
// tokens maps session token -> user id, parsed from configuration as
// comma-separated token:userId pairs.
func SessionAuth(tokens map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Session-Token")
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := tokens[token]
			if !ok {
				slog.Debug("Unknown session token, treating request as anonymous",
					"remote_addr", r.RemoteAddr)
				next.ServeHTTP(w, r)
				return
			}

			slog.Debug("Session token resolved", "user_id", userID, "remote_addr", r.RemoteAddr)
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromRequest extracts the authentication signal placed by
// SessionAuth. A request that never passed the middleware reads as
// anonymous.
func IdentityFromRequest(r *http.Request) Identity {
	if userID, ok := r.Context().Value(userIDKey).(string); ok && userID != "" {
		return Identity{UserID: userID, Authenticated: true}
	}
	return Identity{}
}

// ParseSessionKeys parses comma-separated token:userId pairs
func ParseSessionKeys(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, found := strings.Cut(pair, ":")
		if !found || token == "" || userID == "" {
			slog.Warn("Ignoring malformed session key entry", "entry", pair)
			continue
		}
		tokens[strings.TrimSpace(token)] = strings.TrimSpace(userID)
	}
	return tokens
}
