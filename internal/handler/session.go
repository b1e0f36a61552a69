package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tangled-dev/tangled/internal/composer"
	mw "github.com/tangled-dev/tangled/shared/middleware"
)

const (
	sessionCookie = "draft_session"
	// API clients without cookies carry the session in this header
	sessionHeader = "X-Draft-Session"
)

// composerFor returns the draft composer of the caller, starting a new
// session if the request carries none.
func (h *Handler) composerFor(w http.ResponseWriter, r *http.Request) *composer.Composer {
	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cfg.Http.SecureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(h.cfg.Composer.SessionTTL.Seconds()),
		})
	}
	w.Header().Set(sessionHeader, id)
	return h.sessions.Get(r.Context(), id, mw.GetUserFromContext(r))
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); validSessionID(id) {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil && validSessionID(c.Value) {
		return c.Value
	}
	return ""
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return id != "" && err == nil
}
