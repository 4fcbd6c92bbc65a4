package jwtauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, a *Authenticator) (*httptest.Server, *string) {
	t.Helper()

	var gotUserID string
	handler := a.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, &gotUserID
}

func get(t *testing.T, url, authorization string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestMiddleware_ValidToken(t *testing.T) {
	a := New([]byte("test-secret"))
	srv, gotUserID := newTestServer(t, a)

	token, err := a.Issue("usr-42", time.Minute)
	require.NoError(t, err)

	resp := get(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "usr-42", *gotUserID)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	srv, _ := newTestServer(t, New([]byte("test-secret")))

	resp := get(t, srv.URL, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	a := New([]byte("test-secret"))
	srv, _ := newTestServer(t, a)

	for _, header := range []string{"Bearer", "Basic abc", "garbage"} {
		resp := get(t, srv.URL, header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestMiddleware_WrongSecret(t *testing.T) {
	srv, _ := newTestServer(t, New([]byte("right-secret")))

	other := New([]byte("wrong-secret"))
	token, err := other.Issue("usr-42", time.Minute)
	require.NoError(t, err)

	resp := get(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	a := New([]byte("test-secret"))
	srv, _ := newTestServer(t, a)

	token, err := a.Issue("usr-42", -time.Minute)
	require.NoError(t, err)

	resp := get(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddleware_TokenWithoutSubject(t *testing.T) {
	secret := []byte("test-secret")
	srv, _ := newTestServer(t, New(secret))

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	resp := get(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUserIDFromContext_Unset(t *testing.T) {
	assert.Empty(t, UserIDFromContext(t.Context()))
}
