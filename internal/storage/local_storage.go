package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"carrental-backend/internal/logger"

	"github.com/google/uuid"
)

// LocalStorage keeps photos on the local filesystem and serves them through the
// API's own upload and download routes. It stands in for a bucket in development.
type LocalStorage struct {
	baseURL   string // Server URL (e.g., "http://localhost:8080")
	photosDir string

	mu      sync.Mutex
	uploads map[string]pendingUpload // by upload token
	// now is the clock used for upload expiry. Tests pin it.
	now func() time.Time
}

type pendingUpload struct {
	key       string
	expiresAt time.Time
}

func NewLocalStorage(baseURL, uploadsDir string) (*LocalStorage, error) {
	photosDir := filepath.Join(uploadsDir, "photos")
	if err := os.MkdirAll(photosDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photos directory: %w", err)
	}
	return &LocalStorage{
		baseURL:   strings.TrimRight(baseURL, "/"),
		photosDir: photosDir,
		uploads:   make(map[string]pendingUpload),
		now:       time.Now,
	}, nil
}

// GeneratePresignedUploadURL points at the server's PUT /api/v1/upload route.
// The key travels in the query string so the handler knows where to save; the
// token in the path is only good for that key until it expires.
func (s *LocalStorage) GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	uploadToken := uuid.New().String()

	s.mu.Lock()
	now := s.now()
	for token, u := range s.uploads {
		if !now.Before(u.expiresAt) {
			delete(s.uploads, token)
		}
	}
	s.uploads[uploadToken] = pendingUpload{key: key, expiresAt: now.Add(expiresIn)}
	s.mu.Unlock()

	return fmt.Sprintf("%s/api/v1/upload/%s?key=%s", s.baseURL, uploadToken, url.QueryEscape(key)), nil
}

func (s *LocalStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/v1/download/%s?key=%s", s.baseURL, path.Base(key), url.QueryEscape(key)), nil
}

func (s *LocalStorage) FileExists(ctx context.Context, key string) (bool, int64, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Photo not found", "key", key)
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

// SaveUpload stores the body sent to a presigned upload URL. The token is
// spent once the photo is written.
func (s *LocalStorage) SaveUpload(token, key string, reader io.Reader) error {
	if _, err := s.path(key); err != nil {
		return err
	}

	s.mu.Lock()
	u, ok := s.uploads[token]
	s.mu.Unlock()
	if !ok || u.key != key || !s.now().Before(u.expiresAt) {
		return ErrUploadDenied
	}

	if err := s.SaveFile(key, reader); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.uploads, token)
	s.mu.Unlock()
	return nil
}

// SaveFile writes a new photo. Existing photos are never replaced.
func (s *LocalStorage) SaveFile(key string, reader io.Reader) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrPhotoExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStorage) ReadFile(key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// path maps key under the photos directory, rejecting traversal.
func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.photosDir, filepath.FromSlash(clean)), nil
}
