package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithIdentity(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string, string, string) {
	t.Helper()
	var userID, username, sessionID string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		username = UsernameFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, userID, username, sessionID
}

func TestMiddlewareMintsAnonymousID(t *testing.T) {
	w, userID, username, sessionID := serveWithIdentity(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, isValidAnonID(userID), "unexpected user id %q", userID)
	assert.Equal(t, "anon-"+userID[len(userID)-8:], username)
	assert.Equal(t, DefaultSessionIDValue, sessionID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)
	assert.Equal(t, userID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	existing := "anon_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})

	_, userID, _, _ := serveWithIdentity(t, req)
	assert.Equal(t, existing, userID)
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "local"})

	_, userID, _, _ := serveWithIdentity(t, req)
	assert.NotEqual(t, "local", userID)
	assert.True(t, isValidAnonID(userID))
}

func TestMiddlewareSessionID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"header", "tab-1", "", "tab-1"},
		{"query", "", "tab-2", "tab-2"},
		{"header wins", "tab-1", "tab-2", "tab-1"},
		{"invalid", "tab 1/../", "", DefaultSessionIDValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target += "?session_id=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set(SessionHeaderName, tt.header)
			}
			_, _, _, sessionID := serveWithIdentity(t, req)
			assert.Equal(t, tt.want, sessionID)
		})
	}
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", IPFromRequest(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", IPFromRequest(req))
}
