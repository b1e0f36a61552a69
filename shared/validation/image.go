package validation

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tangled-dev/tangled/shared/domain"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ValidateImage opens an uploaded file and checks that it is an image of
// an allowed MIME type. The returned PendingFile owns the opened file;
// callers close it through CloseFile.
func ValidateImage(fileHeader *multipart.FileHeader, allowedMimes []string, maxSize int64) (*domain.PendingFile, error) {
	if fileHeader == nil {
		return nil, nil
	}
	if err := checkSize(fileHeader.Filename, fileHeader.Size, maxSize); err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}

	pf, err := inspectImage(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, file, allowedMimes)
	if err != nil {
		file.Close()
		return nil, err
	}
	return pf, nil
}

// OpenImageFile is ValidateImage for a file on the local disk.
func OpenImageFile(path string, allowedMimes []string, maxSize int64) (*domain.PendingFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotAnImage, path)
	}
	if err := checkSize(info.Name(), info.Size(), maxSize); err != nil {
		file.Close()
		return nil, err
	}

	pf, err := inspectImage(info.Name(), "", info.Size(), file, allowedMimes)
	if err != nil {
		file.Close()
		return nil, err
	}
	return pf, nil
}

func checkSize(filename string, size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %s is %.1f MB, limit is %.0f MB", ErrPayloadTooLarge, filename, FormatSizeMB(size), FormatSizeMB(maxSize))
	}
	return nil
}

func inspectImage(filename, declaredMime string, size int64, file io.ReadSeeker, allowedMimes []string) (*domain.PendingFile, error) {
	mimeType, err := detectMimeType(filename, declaredMime, file)
	if err != nil {
		return nil, err
	}

	if !BuildAllowedMimeMap(allowedMimes)[mimeType] {
		return nil, fmt.Errorf("%w: %s (file: %s)", ErrInvalidMimeType, mimeType, filename)
	}

	width, height := ExtractImageDimensions(file)
	if width == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, filename)
	}

	return &domain.PendingFile{
		FileCommonMetadata: domain.FileCommonMetadata{
			Filename:    filename,
			SizeBytes:   size,
			MimeType:    mimeType,
			ImageWidth:  width,
			ImageHeight: height,
		},
		Data: file,
	}, nil
}

// CloseFile closes the data of a pending file if it is closable.
func CloseFile(pf *domain.PendingFile) {
	if pf == nil {
		return
	}
	if closer, ok := pf.Data.(io.Closer); ok {
		closer.Close()
	}
}

func BuildAllowedMimeMap(mimes []string) map[string]bool {
	allowed := make(map[string]bool, len(mimes))
	for _, m := range mimes {
		allowed[strings.ToLower(m)] = true
	}
	return allowed
}

// detectMimeType prefers the declared Content-Type, then the extension,
// then content sniffing.
func detectMimeType(filename, declared string, file io.ReadSeeker) (string, error) {
	mimeType := declared

	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected := mime.TypeByExtension(filepath.Ext(filename)); detected != "" {
			mimeType = detected
		}
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(file, head)
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("failed to rewind uploaded file: %w", err)
		}
		if n > 0 {
			mimeType = http.DetectContentType(head[:n])
		}
	}

	if mimeType == "" {
		return "", fmt.Errorf("could not detect MIME type for file: %s", filename)
	}

	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	return strings.ToLower(mimeType), nil
}

// ExtractImageDimensions decodes the image header and rewinds the file.
// It returns nils if the data is not a decodable image.
func ExtractImageDimensions(file io.ReadSeeker) (*int, *int) {
	cfg, _, err := image.DecodeConfig(file)
	file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, nil
	}

	width, height := cfg.Width, cfg.Height
	return &width, &height
}
