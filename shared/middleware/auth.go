package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tangled-dev/tangled/shared/domain"
	jwt_internal "github.com/tangled-dev/tangled/shared/jwt"
	"github.com/tangled-dev/tangled/shared/logger"
)

// Key to store the user claims in the request context
type key int

const UserClaimsKey key = 0

const AccessTokenCookie = "accessToken"

var errNoToken = errors.New("no token")

// Auth reads identity tokens issued by the identity provider
type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

// OptionalAuth populates the user if the token is valid. Anonymous
// requests pass through with no user in the context.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return a.optional(true)
}

// OptionalBearerAuth is OptionalAuth for API routes: the accessToken
// cookie is ignored, so only an explicit Authorization header signs a
// request in.
func (a *Auth) OptionalBearerAuth() func(http.Handler) http.Handler {
	return a.optional(false)
}

func (a *Auth) optional(withCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.extractUser(r, withCookie)
			if err != nil && !errors.Is(err, errNoToken) {
				logger.Log.Debug("ignoring invalid token", "error", err)
			}
			if user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractUser prefers the cookie (browsers) over the Authorization header (API clients)
func (a *Auth) extractUser(r *http.Request, withCookie bool) (*domain.User, error) {
	var tokenString string
	if cookie, err := r.Cookie(AccessTokenCookie); withCookie && err == nil {
		tokenString = cookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}
	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := jwt_internal.UserFromClaims(token)
	if err != nil {
		logger.Log.Error("invalid jwt claims", "error", err)
		return nil, err
	}
	return user, nil
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserClaimsKey, user)
}

// GetUserFromContext returns nil for anonymous requests
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(UserClaimsKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}
