package composer

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
)

// Upload is one upload-then-resolve chain started by SelectImage.
// A nil *Upload stands for "no file selected".
type Upload struct {
	done chan struct{}
	url  string
	err  error
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done is closed once the chain has settled.
func (u *Upload) Done() <-chan struct{} {
	if u == nil {
		return closedChan
	}
	return u.done
}

// Wait blocks until the chain settles or ctx ends and returns the
// resolved download URL.
func (u *Upload) Wait(ctx context.Context) (string, error) {
	if u == nil {
		return "", ErrNoFile
	}
	select {
	case <-u.done:
		return u.url, u.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SelectImage starts uploading file and stores its download URL in the
// draft when done. A nil file is a no-op. The chain runs on its own
// goroutine bound to ctx, so ctx must outlive the upload.
func (c *Composer) SelectImage(ctx context.Context, file *domain.PendingFile) *Upload {
	return c.selectImage(ctx, file, false)
}

// TriggerFilePicker asks the picker for a file and uploads it. A cancelled
// pick returns (nil, nil). The picked file is closed after the upload.
func (c *Composer) TriggerFilePicker(ctx context.Context) (*Upload, error) {
	if c.opts.Picker == nil {
		return nil, ErrNoPicker
	}
	file, err := c.opts.Picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	if file == nil {
		uploadsTotal.WithLabelValues(resultCancelled).Inc()
		return nil, nil
	}
	return c.selectImage(ctx, file, true), nil
}

func (c *Composer) selectImage(ctx context.Context, file *domain.PendingFile, closeAfter bool) *Upload {
	if file == nil {
		return nil
	}

	u := &Upload{done: make(chan struct{})}
	c.beginUpload()

	go func() {
		start := time.Now()
		url, err := c.upload(ctx, file)
		if closeAfter {
			if closer, ok := file.Data.(io.Closer); ok {
				closer.Close()
			}
		}

		if err != nil {
			logger.Log.Error("image upload failed", "filename", file.Filename, "error", err)
			uploadsTotal.WithLabelValues(resultError).Inc()
		} else {
			uploadsTotal.WithLabelValues(resultOK).Inc()
			uploadDuration.Observe(time.Since(start).Seconds())
		}

		c.endUpload(url, err)
		u.url, u.err = url, err
		close(u.done)
	}()

	return u
}

func (c *Composer) upload(ctx context.Context, file *domain.PendingFile) (string, error) {
	key := c.objectKey(file.Filename)

	loc, err := c.objects.Upload(ctx, key, file.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	url, err := c.objects.ResolveDownloadURL(ctx, loc)
	if err != nil {
		if d, ok := c.objects.(ObjectDeleter); ok {
			if derr := d.Delete(loc); derr != nil {
				logger.Log.Warn("failed to remove unresolved object", "key", loc.FullPath, "error", derr)
			}
		}
		return "", fmt.Errorf("%w: resolve download url: %w", ErrUploadFailed, err)
	}
	return url, nil
}

// objectKey is prefix + base name of the original file + unique id.
func (c *Composer) objectKey(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "image"
	}
	return c.opts.KeyPrefix + name + c.opts.NewID()
}

func (c *Composer) beginUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
}

// endUpload publishes the result and signals idleness in one critical
// section, so a waiting Submit always sees the URL. Chains that settle
// later overwrite earlier ones.
func (c *Composer) endUpload(url string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.draft.ImageURL = url
	}
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
		c.idle = nil
	}
}
