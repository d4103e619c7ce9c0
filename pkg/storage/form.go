package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrImageRequired is returned when a create request carries no image file.
var ErrImageRequired = errors.New("image file is required")

// Uploader stores an image and returns its public URL.
type Uploader interface {
	UploadImage(ctx context.Context, folder, filename, contentType string, body io.Reader, size int64) (string, error)
}

// IsValidationError reports whether err should be surfaced to the client as a 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrImageTooLarge) || errors.Is(err, ErrUnsupportedImage) || errors.Is(err, ErrImageRequired)
}

// UploadFormImage validates a multipart image and streams it to up.
func UploadFormImage(ctx context.Context, up Uploader, folder string, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", ErrImageRequired
	}
	contentType, err := ValidateImage(fh.Header.Get("Content-Type"), fh.Filename, fh.Size)
	if err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return up.UploadImage(ctx, folder, fh.Filename, contentType, f, fh.Size)
}
