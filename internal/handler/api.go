package handler

import (
	"errors"
	"net/http"

	"github.com/tangled-dev/tangled/shared/api"
	"github.com/tangled-dev/tangled/shared/domain"
	internal_errors "github.com/tangled-dev/tangled/shared/errors"
	"github.com/tangled-dev/tangled/shared/logger"
	mw "github.com/tangled-dev/tangled/shared/middleware"
	"github.com/tangled-dev/tangled/shared/utils"
)

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	err = statusError(err)
	var e *internal_errors.ErrorWithStatusCode
	if !errors.As(err, &e) {
		logger.Log.Error("api request failed", "path", r.URL.Path, "error", err)
		err = internal_errors.WithStatus(http.StatusInternalServerError, "Internal error", err)
	}
	utils.WriteErrorAndStatusCode(w, err)
}

func (h *Handler) DraftGetHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)
	utils.WriteJSON(w, http.StatusOK, api.DraftResponse{
		Draft:     c.Draft(),
		Profile:   c.Profile(),
		Uploading: c.Uploading(),
	})
}

func (h *Handler) ThreadCreateHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)

	var body api.CreateThreadRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	c.SetBody(body.Body)

	thread, err := c.Submit(r.Context(), mw.GetUserFromContext(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreateThreadResponse{Thread: thread})
}

func (h *Handler) DraftImageHandler(w http.ResponseWriter, r *http.Request) {
	c := h.composerFor(w, r)
	imageURL, err := h.uploadImage(w, r, c)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.UploadImageResponse{ImageURL: imageURL})
}

func (h *Handler) ThreadsGetHandler(w http.ResponseWriter, r *http.Request) {
	threads, err := h.feed.Recent(r.Context())
	if err != nil {
		logger.Log.Error("failed to load recent threads", "error", err)
		utils.WriteErrorAndStatusCode(w, internal_errors.WithStatus(http.StatusServiceUnavailable, "Threads are unavailable", err))
		return
	}
	if threads == nil {
		threads = []domain.Thread{}
	}
	utils.WriteJSON(w, http.StatusOK, api.ThreadsResponse{Threads: threads})
}
