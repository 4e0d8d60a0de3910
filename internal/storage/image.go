package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds the maximum size")
	ErrEmptyImage       = errors.New("image is empty")
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ContentTypeFor returns the MIME type for an accepted image filename, or "".
func ContentTypeFor(filename string) string {
	return imageContentTypes[strings.ToLower(filepath.Ext(filename))]
}

// multipartOverhead covers the multipart framing and the small fields sent with an image
const multipartOverhead = 64 << 10

// UploadBodyLimit is the largest request body accepted for an image of at most maxSize bytes.
// Zero means unlimited.
func UploadBodyLimit(maxSize int64) int64 {
	if maxSize <= 0 {
		return 0
	}
	return maxSize + multipartOverhead
}

// ImageUploader validates listing images and stores them under a random name.
// Only the generated name is handed back to the caller.
type ImageUploader struct {
	store   ObjectStorage
	maxSize int64
}

// NewImageUploader constructs an uploader writing to store.
func NewImageUploader(store ObjectStorage, maxSize int64) *ImageUploader {
	return &ImageUploader{store: store, maxSize: maxSize}
}

// BodyLimit is UploadBodyLimit for this uploader's maximum image size
func (u *ImageUploader) BodyLimit() int64 {
	return UploadBodyLimit(u.maxSize)
}

// Upload checks the extension and size, then stores the image and returns its generated filename.
func (u *ImageUploader) Upload(ctx context.Context, originalName string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	if size <= 0 {
		return "", ErrEmptyImage
	}
	if u.maxSize > 0 && size > u.maxSize {
		return "", ErrImageTooLarge
	}

	filename := uuid.NewString() + ext
	if err := u.store.Put(ctx, filename, r, size, contentType); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return filename, nil
}
