// Package fs is the object store for uploaded images, kept on the local
// filesystem and served under /media.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tangled-dev/tangled/shared/domain"
)

// MediaRoute is where the router serves objects from.
const MediaRoute = "/media"

var ErrNotFound = errors.New("object not found")

type Storage struct {
	rootPath  string
	publicURL string
}

func New(rootPath, publicURL string) (*Storage, error) {
	// Use filepath.Clean to prevent path traversal issues like "media/../"
	p := filepath.Clean(rootPath)

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	return &Storage{rootPath: p, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// cleanKey anchors key at "/" so ".." cannot climb out of the root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if k == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return k, nil
}

func (s *Storage) fullPath(key string) string {
	return filepath.Join(s.rootPath, filepath.FromSlash(key))
}

// Upload writes data under key. The object appears atomically: bytes go
// to a temp file in the same directory which is then renamed.
func (s *Storage) Upload(ctx context.Context, key string, data io.Reader) (domain.ObjectLocation, error) {
	k, err := cleanKey(key)
	if err != nil {
		return domain.ObjectLocation{}, err
	}
	fullPath := s.fullPath(k)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return domain.ObjectLocation{}, fmt.Errorf("failed to create subdirectories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return domain.ObjectLocation{}, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, readerWithContext(ctx, data)); err != nil {
		tmp.Close()
		return domain.ObjectLocation{}, fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ObjectLocation{}, fmt.Errorf("failed to flush file data: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return domain.ObjectLocation{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	return domain.ObjectLocation{FullPath: k}, nil
}

// ResolveDownloadURL returns the public URL of an existing object.
func (s *Storage) ResolveDownloadURL(ctx context.Context, loc domain.ObjectLocation) (string, error) {
	k, err := cleanKey(loc.FullPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(s.fullPath(k)); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	segments := strings.Split(strings.TrimPrefix(k, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicURL + MediaRoute + "/" + strings.Join(segments, "/"), nil
}

// Open opens an object for serving. The caller closes it.
func (s *Storage) Open(key string) (*os.File, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(s.fullPath(k))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	return file, nil
}

// Delete removes an object. Missing objects are not an error.
func (s *Storage) Delete(loc domain.ObjectLocation) error {
	k, err := cleanKey(loc.FullPath)
	if err != nil {
		return err
	}
	if err := os.Remove(s.fullPath(k)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
