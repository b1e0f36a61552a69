package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/tangled-dev/tangled/shared/errors"
	"github.com/tangled-dev/tangled/shared/logger"
	"github.com/tangled-dev/tangled/shared/utils"
)

// CheckOrigin rejects state-changing requests whose Origin header names a
// site other than publicURL or one of allowed. Requests without an Origin
// header (CLI tools, server-to-server) pass.
func CheckOrigin(publicURL string, allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]bool, len(allowed)+1)
	if u, err := url.Parse(publicURL); err == nil && u.Host != "" {
		origins[strings.ToLower(u.Scheme+"://"+u.Host)] = true
	}
	for _, o := range allowed {
		origins[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			origin := r.Header.Get("Origin")
			if origin == "" || origins[strings.ToLower(origin)] {
				next.ServeHTTP(w, r)
				return
			}
			logger.Log.Warn("cross-origin request rejected", "origin", origin, "path", r.URL.Path)
			utils.WriteErrorAndStatusCode(w, errors.WithStatus(http.StatusForbidden, "Origin not allowed", nil))
		})
	}
}
