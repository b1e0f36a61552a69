package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	objectfs "github.com/tangled-dev/tangled/internal/storage/fs"
	internal_errors "github.com/tangled-dev/tangled/shared/errors"
	"github.com/tangled-dev/tangled/shared/logger"
	"github.com/tangled-dev/tangled/shared/utils"
)

// MediaGetHandler serves an uploaded object. Keys are unique per upload,
// so responses are cached for good.
func (h *Handler) MediaGetHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	f, err := h.media.Open(key)
	if err != nil {
		if errors.Is(err, objectfs.ErrNotFound) {
			utils.WriteErrorAndStatusCode(w, internal_errors.NotFound("Image not found"))
			return
		}
		logger.Log.Error("failed to open media", "key", key, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Log.Error("failed to stat media", "key", key, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
