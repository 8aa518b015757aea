package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGate() *Gate {
	return NewGate("admin", "password", []byte("test-secret"))
}

func TestAuthenticate(t *testing.T) {
	gate := testGate()

	token, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, ok := gate.Username(token)
	require.True(t, ok)
	assert.Equal(t, "admin", username)
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	gate := testGate()

	for _, tt := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"wrong", "password"},
		{"", ""},
	} {
		_, err := gate.Authenticate(tt.user, tt.pass)
		require.ErrorIs(t, err, ErrInvalidCredentials, "%s/%s", tt.user, tt.pass)
	}
}

func TestDestroy_RevokesToken(t *testing.T) {
	gate := testGate()

	token, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)

	require.NoError(t, gate.Destroy(token))

	// Signature and expiry are still valid; the session is not.
	_, ok := gate.Username(token)
	assert.False(t, ok)

	// Idempotent, also for garbage input.
	require.NoError(t, gate.Destroy(token))
	require.NoError(t, gate.Destroy("garbage"))
	require.NoError(t, gate.Destroy(""))
}

func TestUsername_ForeignToken(t *testing.T) {
	gate := testGate()
	other := NewGate("admin", "password", []byte("other-secret"))

	token, err := other.Authenticate("admin", "password")
	require.NoError(t, err)

	_, ok := gate.Username(token)
	assert.False(t, ok, "token signed with a different secret must be rejected")
}

func TestSessionsAreIndependent(t *testing.T) {
	gate := testGate()

	first, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)
	second, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)

	require.NoError(t, gate.Destroy(first))

	_, ok := gate.Username(first)
	assert.False(t, ok)
	_, ok = gate.Username(second)
	assert.True(t, ok, "destroying one session must not touch another")
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestHandleLogin(t *testing.T) {
	gate := testGate()
	handler := HandleLogin(gate)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"password"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	cookie := sessionCookie(t, rec.Result())
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.True(t, cookie.HttpOnly)

	username, ok := gate.Username(cookie.Value)
	require.True(t, ok)
	assert.Equal(t, "admin", username)
}

func TestHandleLogin_Rejected(t *testing.T) {
	gate := testGate()
	handler := HandleLogin(gate)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"nope"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Nil(t, sessionCookie(t, rec.Result()))
}

func TestHandleLogout(t *testing.T) {
	gate := testGate()
	token, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	HandleLogout(gate)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := gate.Username(token)
	assert.False(t, ok)

	cookie := sessionCookie(t, rec.Result())
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge, "logout must expire the cookie")
}

func TestHandleLogout_NoSession(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleLogout(testGate())(rec, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	gate := testGate()

	rec := httptest.NewRecorder()
	HandleStatus(gate)(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())

	token, err := gate.Authenticate("admin", "password")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	HandleStatus(gate)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":true,"username":"admin"}`, rec.Body.String())
}
