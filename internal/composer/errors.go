package composer

import "errors"

var (
	ErrEmptyBody        = errors.New("thread body is empty")
	ErrCreateFailed     = errors.New("failed to create thread")
	ErrUploadFailed     = errors.New("failed to upload image")
	ErrUploadPending    = errors.New("image upload still in progress")
	ErrSubmitInProgress = errors.New("thread submission already in progress")
	ErrNoFile           = errors.New("no file selected")
	ErrNoPicker         = errors.New("no file picker configured")
)
