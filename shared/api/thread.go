package api

import "github.com/tangled-dev/tangled/shared/domain"

type CreateThreadRequest struct {
	Body string `json:"body" validate:"required"`
}

type CreateThreadResponse struct {
	Thread domain.Thread `json:"thread"`
}

type ThreadsResponse struct {
	Threads []domain.Thread `json:"threads"`
}
