// Package auth implements the admin session gate. A successful login issues a
// signed token carried in a cookie; the token's session ID is also tracked in
// a server-side active set, so logout genuinely revokes it rather than just
// waiting out the expiry.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "portfolio_session"

const sessionTTL = 24 * time.Hour

// ErrInvalidCredentials is returned by Authenticate on a bad username or
// password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionClaims are the signed contents of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Username  string `json:"username"`
}

// Gate authorizes mutating calls. It is the sole source of truth for "is this
// caller authenticated"; the catalog store itself never checks authorization.
type Gate struct {
	username string
	password string
	secret   []byte

	mu     sync.Mutex
	active map[string]string // session ID -> username
}

// NewGate creates a gate for a single configured admin credential.
func NewGate(username, password string, secret []byte) *Gate {
	return &Gate{
		username: username,
		password: password,
		secret:   secret,
		active:   map[string]string{},
	}
}

// Authenticate compares the supplied credentials against the configured ones
// in constant time and, on success, issues a new session token.
func (g *Gate) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	sid := ulid.Make().String()
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
		SessionID: sid,
		Username:  username,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	g.mu.Lock()
	g.active[sid] = username
	g.mu.Unlock()

	return token, nil
}

// Username verifies a session token and returns the authenticated principal.
// A token whose session has been destroyed is rejected even if its signature
// and expiry are still valid.
func (g *Gate) Username(token string) (string, bool) {
	claims, err := g.parse(token)
	if err != nil {
		return "", false
	}

	g.mu.Lock()
	username, ok := g.active[claims.SessionID]
	g.mu.Unlock()
	return username, ok
}

// Destroy invalidates the session behind a token. Destroying an absent or
// garbage token is not an error.
func (g *Gate) Destroy(token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return nil
	}

	g.mu.Lock()
	delete(g.active, claims.SessionID)
	g.mu.Unlock()
	return nil
}

func (g *Gate) parse(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates the admin credential and establishes the session
// cookie.
func HandleLogin(gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]any{"success": false, "message": "Invalid request body"})
			return
		}

		token, err := gate.Authenticate(req.Username, req.Password)
		if err != nil {
			logrus.WithField("username", req.Username).Warn("Failed login attempt")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		logrus.WithField("username", req.Username).Info("Login successful")
		render.JSON(w, r, map[string]any{"success": true, "message": "Login successful"})
	}
}

// HandleLogout destroys the caller's session. Tolerant of a missing cookie.
func HandleLogout(gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			if err := gate.Destroy(cookie.Value); err != nil {
				logrus.WithError(err).Error("Failed to destroy session")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]any{"message": "Could not log out."})
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
		render.JSON(w, r, map[string]any{"success": true, "message": "Logged out successfully"})
	}
}

// HandleStatus reports whether the caller holds a live session.
func HandleStatus(gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			render.JSON(w, r, map[string]any{"loggedIn": false})
			return
		}
		username, ok := gate.Username(cookie.Value)
		if !ok {
			render.JSON(w, r, map[string]any{"loggedIn": false})
			return
		}
		render.JSON(w, r, map[string]any{"loggedIn": true, "username": username})
	}
}
