package handler

import (
	"errors"
	"net/http"

	"github.com/tangled-dev/tangled/internal/composer"
	internal_errors "github.com/tangled-dev/tangled/shared/errors"
	"github.com/tangled-dev/tangled/shared/validation"
)

var ErrRateLimited = errors.New("rate limited")

type knownError struct {
	target  error
	status  int
	code    string // carried in the ?error= query of form redirects
	message string
}

var knownErrors = []knownError{
	{composer.ErrEmptyBody, http.StatusBadRequest, "empty", "Thread text is required"},
	{composer.ErrNoFile, http.StatusBadRequest, "no_file", "No image selected"},
	{validation.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "too_large", "Image is too large"},
	{validation.ErrInvalidMimeType, http.StatusBadRequest, "bad_image", "Unsupported image"},
	{validation.ErrNotAnImage, http.StatusBadRequest, "bad_image", "Unsupported image"},
	{composer.ErrSubmitInProgress, http.StatusConflict, "busy", "Thread is already being posted"},
	{composer.ErrUploadPending, http.StatusConflict, "pending", "Image is still uploading, try again"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "You are posting too fast, try again later"},
	{composer.ErrCreateFailed, http.StatusBadGateway, "create", "Could not post thread"},
	{composer.ErrUploadFailed, http.StatusBadGateway, "upload", "Could not upload image"},
}

const internalCode = "internal"

func lookupError(err error) (knownError, bool) {
	for _, k := range knownErrors {
		if errors.Is(err, k.target) {
			return k, true
		}
	}
	return knownError{}, false
}

// statusError maps composer and validation failures to HTTP errors.
// Unknown errors pass through and end up as 500.
func statusError(err error) error {
	if k, ok := lookupError(err); ok {
		return internal_errors.WithStatus(k.status, k.message, err)
	}
	return err
}

func errorCode(err error) string {
	if k, ok := lookupError(err); ok {
		return k.code
	}
	return internalCode
}

// flashMessage returns the text for a ?error= code. Unknown codes yield "".
func flashMessage(code string) string {
	if code == "" {
		return ""
	}
	if code == internalCode {
		return "Something went wrong"
	}
	for _, k := range knownErrors {
		if k.code == code {
			return k.message
		}
	}
	return ""
}
