package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("plain http with csp", func(t *testing.T) {
		rr := httptest.NewRecorder()
		SecurityHeaders(false, ComposerCSP)(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, ComposerCSP, rr.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	})

	t.Run("https without csp", func(t *testing.T) {
		rr := httptest.NewRecorder()
		SecurityHeaders(true, "")(ok).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		assert.Empty(t, rr.Header().Get("Content-Security-Policy"))
		assert.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
	})
}
