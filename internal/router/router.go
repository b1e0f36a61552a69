package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tangled-dev/tangled/internal/handler"
	"github.com/tangled-dev/tangled/internal/setup"
	"github.com/tangled-dev/tangled/internal/storage/fs"
	mw "github.com/tangled-dev/tangled/shared/middleware"
	"github.com/tangled-dev/tangled/shared/middleware/metrics"
	"github.com/tangled-dev/tangled/shared/validation"
)

// New creates the chi router with all routes.
// Form posts carry a CSRF token. The JSON API takes identity from the
// Authorization header only, refuses foreign Origins on writes and
// accepts thread bodies as application/json only.
// The submit limiter is shared by the form and the API, so both count
// against one budget per user or IP.
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()
	cfg := deps.Config.Public
	h := deps.Handler

	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimw.Compress(5))
	r.Use(mw.SecurityHeaders(cfg.Http.SecureCookies, mw.ComposerCSP))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(handler.StaticFS()))))
	r.Get(fs.MediaRoute+"/*", h.MediaGetHandler)

	formLimit := passThrough
	apiLimit := passThrough
	if deps.SubmitLimiter != nil {
		formLimit = mw.RateLimitWithHandler(deps.SubmitLimiter, mw.GetUserOrIP, handler.RateLimitedHandler)
		apiLimit = mw.RateLimit(deps.SubmitLimiter, mw.GetUserOrIP)
	}

	csrf := mw.CSRFConfig{
		SecureCookies: cfg.Http.SecureCookies,
		MaxBodySize:   validation.CalculateMaxRequestSize(cfg.MaxImageSize, handler.MultipartOverhead),
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.OptionalAuth())

		r.With(mw.GenerateCSRFToken(csrf)).Get("/", h.IndexGetHandler)
		r.Group(func(r chi.Router) {
			r.Use(mw.ValidateCSRFToken(csrf))
			r.With(formLimit).Post("/threads", h.ThreadPostHandler)
			r.Post("/draft/image", h.DraftImagePostHandler)
		})
	})

	r.Route("/api", func(r chi.Router) {
		if len(cfg.Http.AllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.Http.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Draft-Session"},
				ExposedHeaders:   []string{"X-Draft-Session"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(mw.CheckOrigin(cfg.Http.PublicURL, cfg.Http.AllowedOrigins))
		r.Use(deps.Auth.OptionalBearerAuth())

		r.Get("/draft", h.DraftGetHandler)
		r.Post("/draft/image", h.DraftImageHandler)
		r.Get("/threads", h.ThreadsGetHandler)
		r.With(apiLimit, chimw.AllowContentType("application/json")).Post("/threads", h.ThreadCreateHandler)
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }
