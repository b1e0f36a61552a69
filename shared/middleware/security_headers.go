package middleware

import (
	"net/http"
)

// ComposerCSP allows images from the media route and scripts from /static only.
const ComposerCSP = "default-src 'self'; img-src 'self' data: https:; script-src 'self'; style-src 'self'; form-action 'self'; frame-ancestors 'none'"

// SecurityHeaders sets the usual hardening headers. HSTS is only sent when
// isHTTPS is set; an empty csp skips Content-Security-Policy.
func SecurityHeaders(isHTTPS bool, csp string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			headers.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

			if csp != "" {
				headers.Set("Content-Security-Policy", csp)
			}
			if isHTTPS {
				headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
