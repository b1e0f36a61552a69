package domain

import "time"

// Thread is one user-authored post record.
// OwnerId is nil for anonymous submissions. LikedBy is nil when the
// record is created without the liked_by field.
type Thread struct {
	Id          ThreadId  `json:"id"`
	Body        string    `json:"body"`
	CreatedTime time.Time `json:"created_time"`
	Image       string    `json:"image"`
	OwnerId     *UserId   `json:"owner_id"`
	LikesCount  int       `json:"likes_count"`
	LikedBy     []UserId  `json:"liked_by,omitempty"`
}

func (t Thread) HasImage() bool {
	return t.Image != ""
}

// Draft is the unsaved state of an in-progress composition.
type Draft struct {
	Body     string `json:"body"`
	ImageURL string `json:"image_url"`
}

func (d Draft) IsEmpty() bool {
	return d.Body == "" && d.ImageURL == ""
}
