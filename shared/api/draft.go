package api

import "github.com/tangled-dev/tangled/shared/domain"

type DraftResponse struct {
	Draft   domain.Draft    `json:"draft"`
	Profile *domain.Profile `json:"profile"`
	// Uploading is true while an image upload has not settled
	Uploading bool `json:"uploading"`
}

type UploadImageResponse struct {
	ImageURL string `json:"image_url"`
}
