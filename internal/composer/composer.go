// Package composer holds the "new thread" draft: body text and a pending
// image, submitted as one Thread record.
package composer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
)

type ThreadStore interface {
	CreateThread(ctx context.Context, thread domain.Thread) (domain.ThreadId, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, data io.Reader) (domain.ObjectLocation, error)
	ResolveDownloadURL(ctx context.Context, loc domain.ObjectLocation) (string, error)
}

// ObjectDeleter is implemented by object stores that can drop an object
// whose download URL could not be resolved.
type ObjectDeleter interface {
	Delete(loc domain.ObjectLocation) error
}

// FilePicker returns the file chosen by the user, or nil if the choice was cancelled.
type FilePicker interface {
	Pick(ctx context.Context) (*domain.PendingFile, error)
}

type Options struct {
	Now         func() time.Time
	NewID       func() string
	KeyPrefix   string
	InitLikedBy bool
	// UploadWait bounds how long Submit waits for pending uploads. 0 waits until ctx ends.
	UploadWait time.Duration
	Picker     FilePicker
}

func (o *Options) setDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "/images/"
	}
}

type Composer struct {
	threads  ThreadStore
	objects  ObjectStore
	profiles ProfileResolver
	refresh  func()
	opts     Options

	mu         sync.Mutex
	draft      domain.Draft
	user       *domain.User
	profile    *domain.Profile
	inflight   int
	idle       chan struct{} // closed when inflight drops to zero
	submitting bool
}

// New builds a composer. refresh is called once after every successful
// submission and may be nil.
func New(threads ThreadStore, objects ObjectStore, profiles ProfileResolver, refresh func(), opts Options) *Composer {
	opts.setDefaults()
	if profiles == nil {
		profiles = ContextProfiles{}
	}
	return &Composer{
		threads:  threads,
		objects:  objects,
		profiles: profiles,
		refresh:  refresh,
		opts:     opts,
	}
}

// Mount binds the composer to the signed-in user (nil when anonymous) and
// resolves the profile.
func (c *Composer) Mount(ctx context.Context, user *domain.User) {
	profile := c.profiles.Resolve(ctx, user)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.profile = profile
}

func (c *Composer) Profile() *domain.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *Composer) User() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Composer) SetBody(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Body = body
}

func (c *Composer) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Uploading reports whether an image upload is still running.
func (c *Composer) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Submit creates a Thread from the draft. It first waits for pending
// uploads so the record carries the image the user attached. On success
// the submitted values are cleared from the draft and refresh is called.
// On failure the draft is left as it was.
func (c *Composer) Submit(ctx context.Context, owner *domain.User) (domain.Thread, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		submissionsTotal.WithLabelValues(resultBusy).Inc()
		return domain.Thread{}, ErrSubmitInProgress
	}
	if isBlank(c.draft.Body) {
		c.mu.Unlock()
		submissionsTotal.WithLabelValues(resultEmpty).Inc()
		return domain.Thread{}, ErrEmptyBody
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	draft, err := c.settledDraft(ctx)
	if err != nil {
		submissionsTotal.WithLabelValues(resultPending).Inc()
		return domain.Thread{}, err
	}
	if isBlank(draft.Body) {
		submissionsTotal.WithLabelValues(resultEmpty).Inc()
		return domain.Thread{}, ErrEmptyBody
	}

	thread := domain.Thread{
		Body:        draft.Body,
		CreatedTime: c.opts.Now(),
		Image:       draft.ImageURL,
		LikesCount:  0,
	}
	if owner != nil {
		ownerId := owner.Id
		thread.OwnerId = &ownerId
	}
	if c.opts.InitLikedBy {
		thread.LikedBy = []domain.UserId{}
	}

	id, err := c.threads.CreateThread(ctx, thread)
	if err != nil {
		logger.Log.Error("failed to create thread", "owner_id", ownerID(owner), "error", err)
		submissionsTotal.WithLabelValues(resultError).Inc()
		return domain.Thread{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	thread.Id = id

	c.mu.Lock()
	// Keep edits and uploads that landed while the create call was running.
	if c.draft.Body == draft.Body {
		c.draft.Body = ""
	}
	if c.draft.ImageURL == draft.ImageURL {
		c.draft.ImageURL = ""
	}
	c.mu.Unlock()

	submissionsTotal.WithLabelValues(resultOK).Inc()
	if c.refresh != nil {
		c.refresh()
	}
	return thread, nil
}

// settledDraft waits until no upload is running and returns a snapshot of
// the draft taken at that moment.
func (c *Composer) settledDraft(ctx context.Context) (domain.Draft, error) {
	if c.opts.UploadWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.UploadWait)
		defer cancel()
	}

	for {
		c.mu.Lock()
		if c.inflight == 0 {
			draft := c.draft
			c.mu.Unlock()
			return draft, nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return domain.Draft{}, fmt.Errorf("%w: %w", ErrUploadPending, ctx.Err())
		}
	}
}

func ownerID(owner *domain.User) string {
	if owner == nil {
		return ""
	}
	return owner.Id
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
