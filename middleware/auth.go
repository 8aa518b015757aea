package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"portfolio-complete/handlers/auth"
)

type contextKey string

// UserContextKey holds the authenticated username for handlers downstream of
// RequireSession.
const UserContextKey = contextKey("user")

// UserFromContext returns the username RequireSession stored, or "" when the
// request did not pass through it.
func UserFromContext(ctx context.Context) string {
	username, _ := ctx.Value(UserContextKey).(string)
	return username
}

// RequireSession rejects requests that do not carry a live session cookie.
// Every mutating catalog route must sit behind it; read-only routes do not.
func RequireSession(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"message": "Unauthorized: You must be logged in."})
				return
			}

			username, ok := gate.Username(cookie.Value)
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"message": "Unauthorized: You must be logged in."})
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
