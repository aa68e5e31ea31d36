package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, g *Gate, path string, h http.Header) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodPost, "http://example"+path, nil)
	for k, v := range h {
		r.Header[k] = v
	}
	w := httptest.NewRecorder()
	Middleware(g, nil)(next).ServeHTTP(w, r)
	return w, called
}

func TestMiddleware_MissingKeyReturnsChallenge(t *testing.T) {
	w, called := serve(t, NewGate(secret, true), "/api/v1/chat/", http.Header{})

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ApiKey", w.Header().Get("WWW-Authenticate"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["detail"], "API key required")
}

func TestMiddleware_InvalidKey(t *testing.T) {
	w, called := serve(t, NewGate(secret, true), "/api/v1/chat/", header("X-API-Key", "nope"))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ApiKey", w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestMiddleware_ValidKeyAndPublicPath(t *testing.T) {
	w, called := serve(t, NewGate(secret, true), "/api/v1/chat/", header("Authorization", "Bearer "+secret))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)

	w, called = serve(t, NewGate(secret, true), "/health/ready", http.Header{})
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
