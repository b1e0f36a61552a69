package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/tangled-dev/tangled/internal/composer"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
	mw "github.com/tangled-dev/tangled/shared/middleware"
	"github.com/tangled-dev/tangled/shared/validation"
)

// MultipartOverhead is room for the form fields next to the image
const MultipartOverhead = 1 << 20

func redirectWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCode(err)
	if code == internalCode {
		logger.Log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// RateLimitedHandler answers form posts rejected by the rate limiter.
func RateLimitedHandler(w http.ResponseWriter, r *http.Request) {
	redirectWithError(w, r, ErrRateLimited)
}

// ThreadPostHandler submits the draft from the composer form.
func (h *Handler) ThreadPostHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, err)
		return
	}
	c.SetBody(r.PostFormValue("body"))

	if _, err := c.Submit(r.Context(), mw.GetUserFromContext(r)); err != nil {
		redirectWithError(w, r, err)
		return
	}
	http.Redirect(w, r, "/?posted=1", http.StatusSeeOther)
}

// DraftImagePostHandler attaches an image to the draft from the composer form.
func (h *Handler) DraftImagePostHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)
	if _, err := h.uploadImage(w, r, c); err != nil {
		redirectWithError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// uploadImage parses the "image" field, runs it through the composer and
// waits for the download URL. A "body" field, when sent, replaces the
// draft text first so the form keeps what the user typed.
func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request, c *composer.Composer) (string, error) {
	maxRequestSize := validation.CalculateMaxRequestSize(h.cfg.MaxImageSize, MultipartOverhead)
	if err := validation.ValidateAndParseMultipart(r, w, maxRequestSize); err != nil {
		return "", err
	}
	defer r.MultipartForm.RemoveAll()

	if body, ok := r.MultipartForm.Value["body"]; ok && len(body) > 0 {
		c.SetBody(body[0])
	}

	var pf *domain.PendingFile
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		var err error
		pf, err = validation.ValidateImage(files[0], h.cfg.AllowedImageMimeTypes, h.cfg.MaxImageSize)
		if err != nil {
			return "", err
		}
	}
	if pf == nil {
		return "", composer.ErrNoFile
	}
	defer validation.CloseFile(pf)

	upload := c.SelectImage(r.Context(), pf)
	imageURL, err := upload.Wait(r.Context())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// the chain still reads pf until it notices the cancelled request
		<-upload.Done()
	}
	return imageURL, err
}
