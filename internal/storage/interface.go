package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidKey is returned for keys that would escape the storage root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrUploadDenied means the upload token is unknown, expired or issued for
	// another key.
	ErrUploadDenied = errors.New("upload token is not valid for this key")
	ErrPhotoExists  = errors.New("photo already exists")
)

// PhotoStorage stores checklist photos. Clients upload and download through
// presigned URLs; the server only hands out URLs and verifies uploads.
type PhotoStorage interface {
	// GeneratePresignedUploadURL returns a URL the client PUTs the photo to.
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error)

	GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// SaveUpload and ReadFile back the local upload/download handlers.
	SaveUpload(token, key string, reader io.Reader) error
	ReadFile(key string) (io.ReadCloser, error)
}
