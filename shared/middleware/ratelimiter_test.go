package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/middleware/ratelimiter"
)

func TestRateLimit(t *testing.T) {
	t.Run("allows request within rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		middleware := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error getting identity", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		middleware := RateLimit(rl, func(r *http.Request) (string, error) { return "", errors.New("Test error") })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("blocks request exceeding rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		middleware := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req1 := httptest.NewRequest("GET", "/", nil)
		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		req2 := httptest.NewRequest("GET", "/", nil)
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req2)

		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
		assert.Equal(t, "Rate limit exceeded, try again later\n", w2.Body.String())
	})

	t.Run("allows request after rate limit reset", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Millisecond*100)
		defer rl.Stop()
		middleware := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req1 := httptest.NewRequest("GET", "/", nil)
		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		time.Sleep(200 * time.Millisecond)

		req2 := httptest.NewRequest("GET", "/", nil)
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusOK, w2.Code)
	})

	t.Run("uses identity function to determine user", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()
		middleware := RateLimit(rl, func(r *http.Request) (string, error) { return r.Header.Get("X-User-ID"), nil })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req1 := httptest.NewRequest("GET", "/", nil)
		req1.Header.Set("X-User-ID", "user1")
		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		req2 := httptest.NewRequest("GET", "/", nil)
		req2.Header.Set("X-User-ID", "user2")
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusOK, w2.Code)

		req3 := httptest.NewRequest("GET", "/", nil)
		req3.Header.Set("X-User-ID", "user1")
		w3 := httptest.NewRecorder()
		handler.ServeHTTP(w3, req3)
		assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	})
}

func TestRateLimitWithHandler(t *testing.T) {
	t.Run("calls custom handler on rate limit exceeded", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		defer rl.Stop()

		customHandlerCalled := false
		middleware := RateLimitWithHandler(rl,
			func(r *http.Request) (string, error) { return "user1", nil },
			func(w http.ResponseWriter, r *http.Request) {
				customHandlerCalled = true
				w.WriteHeader(http.StatusSeeOther)
				w.Header().Set("Location", "/")
			},
		)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		// First request: allowed
		req1 := httptest.NewRequest("POST", "/board", nil)
		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.False(t, customHandlerCalled)

		// Second request: rate limited, custom handler called
		req2 := httptest.NewRequest("POST", "/board", nil)
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req2)
		assert.True(t, customHandlerCalled)
		assert.Equal(t, http.StatusSeeOther, w2.Code)
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Run("returns user id when user exists in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserClaimsKey, &domain.User{Id: "123"}))

		userID, err := GetUserIDFromContext(req)
		assert.NoError(t, err)
		assert.Equal(t, "user_123", userID)
	})

	t.Run("returns error when user not in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)

		userID, err := GetUserIDFromContext(req)
		assert.Error(t, err)
		assert.Empty(t, userID)
		assert.Equal(t, "Can't get user id", err.Error())
	})
}

func TestGetUserOrIP(t *testing.T) {
	t.Run("signed-in user", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/threads", nil)
		req = req.WithContext(WithUser(req.Context(), &domain.User{Id: "abc"}))

		id, err := GetUserOrIP(req)
		assert.NoError(t, err)
		assert.Equal(t, "user_abc", id)
	})

	t.Run("anonymous falls back to address", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/threads", nil)
		req.RemoteAddr = "203.0.113.50:12345"
		req.Header.Set("X-Forwarded-For", "10.0.0.2")

		id, err := GetUserOrIP(req)
		assert.NoError(t, err)
		assert.Equal(t, "ip_203.0.113.50", id)
	})

	t.Run("invalid address", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/threads", nil)
		req.RemoteAddr = ""

		_, err := GetUserOrIP(req)
		assert.Error(t, err)
	})
}
