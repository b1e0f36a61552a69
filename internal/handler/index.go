package handler

import (
	"net/http"

	"github.com/tangled-dev/tangled/shared/logger"
	mw "github.com/tangled-dev/tangled/shared/middleware"
)

func (h *Handler) IndexGetHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)

	page := indexPage{
		Draft:         c.Draft(),
		Profile:       c.Profile(),
		Uploading:     c.Uploading(),
		MaxImageSize:  h.cfg.MaxImageSize,
		AllowedMimes:  h.cfg.AllowedImageMimeTypes,
		FeedAvailable: true,
	}
	threads, err := h.feed.Recent(r.Context())
	if err != nil {
		logger.Log.Error("failed to load recent threads", "error", err)
		page.FeedAvailable = false
	} else {
		page.Threads = h.renderThreads(threads)
	}

	data := TemplateData{
		Data:      page,
		User:      mw.GetUserFromContext(r),
		Error:     flashMessage(r.URL.Query().Get("error")),
		CSRFToken: mw.GetCSRFTokenFromContext(r),
	}
	if r.URL.Query().Get("posted") != "" {
		data.Notice = "Thread posted"
	}
	h.renderTemplate(w, "index.html", data)
}
