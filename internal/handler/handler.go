package handler

import (
	"context"
	"html/template"
	"net/http"
	"os"

	"github.com/tangled-dev/tangled/internal/composer"
	"github.com/tangled-dev/tangled/internal/markdown"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
)

type DraftSessions interface {
	Get(ctx context.Context, id string, user *domain.User) *composer.Composer
}

type ThreadFeed interface {
	Recent(ctx context.Context) ([]domain.Thread, error)
}

type MediaStore interface {
	Open(key string) (*os.File, error)
}

type Handler struct {
	sessions  DraftSessions
	feed      ThreadFeed
	media     MediaStore
	renderer  *markdown.Renderer
	templates map[string]*template.Template
	cfg       config.Public
}

func New(sessions DraftSessions, feed ThreadFeed, media MediaStore, renderer *markdown.Renderer, cfg config.Public) *Handler {
	return &Handler{
		sessions:  sessions,
		feed:      feed,
		media:     media,
		renderer:  renderer,
		templates: mustLoadTemplates(),
		cfg:       cfg,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
