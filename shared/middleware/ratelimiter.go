package middleware

import (
	"errors"
	"net/http"

	"github.com/tangled-dev/tangled/shared/middleware/ratelimiter"
	"github.com/tangled-dev/tangled/shared/utils"
)

func RateLimit(rl *ratelimiter.KeyedLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return RateLimitWithHandler(rl, getIdentity, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
	})
}

// RateLimitWithHandler lets form routes answer with a redirect instead of a bare 429.
func RateLimitWithHandler(rl *ratelimiter.KeyedLimiter, getIdentity func(r *http.Request) (string, error), onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(identity) {
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Possible if user was authorized with previous middleware
func GetUserIDFromContext(r *http.Request) (string, error) {
	user := GetUserFromContext(r)
	if user == nil {
		return "", errors.New("Can't get user id")
	}
	return "user_" + user.Id, nil
}

// GetUserOrIP keys signed-in users by id and anonymous ones by address.
func GetUserOrIP(r *http.Request) (string, error) {
	if id, err := GetUserIDFromContext(r); err == nil {
		return id, nil
	}
	ip, err := utils.GetIP(r)
	if err != nil {
		return "", err
	}
	return "ip_" + ip, nil
}
