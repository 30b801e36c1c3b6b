package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"carrental-backend/internal/logger"
	"carrental-backend/internal/storage"

	"github.com/gorilla/mux"
)

var photoContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

// PhotoHandler serves the upload and download URLs handed out for checklist
// photos when photos are kept on the local filesystem.
type PhotoHandler struct {
	photos   storage.PhotoStorage
	maxBytes int64
}

func NewPhotoHandler(photos storage.PhotoStorage, maxBytes int64) *PhotoHandler {
	return &PhotoHandler{photos: photos, maxBytes: maxBytes}
}

// HandleUpload accepts the PUT a client sends to a presigned upload URL.
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !isAllowedPhotoType(contentType) {
		http.Error(w, "Invalid content type", http.StatusBadRequest)
		return
	}

	body := io.Reader(r.Body)
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	token := mux.Vars(r)["token"]
	if err := h.photos.SaveUpload(token, key, body); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, storage.ErrInvalidKey):
			http.Error(w, "Invalid key", http.StatusBadRequest)
		case errors.Is(err, storage.ErrUploadDenied):
			http.Error(w, "Upload URL is invalid or expired", http.StatusForbidden)
		case errors.Is(err, storage.ErrPhotoExists):
			http.Error(w, "Photo already uploaded", http.StatusConflict)
		default:
			logger.Error("Failed to save photo", "key", key, "error", err)
			http.Error(w, "Failed to save file", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("ETag", `"local-etag-success"`)
	w.WriteHeader(http.StatusOK)
}

// HandleDownload streams a stored photo.
func (h *PhotoHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	file, err := h.photos.ReadFile(key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	contentType, ok := photoContentTypes[strings.ToLower(filepath.Ext(key))]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream photo", "key", key, "error", err)
	}
}

func isAllowedPhotoType(contentType string) bool {
	for _, ct := range photoContentTypes {
		if ct == contentType {
			return true
		}
	}
	return false
}
