package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/internal/storage"
)

// UploadService stores user-submitted videos in object storage.
type UploadService struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(store storage.ObjectStore, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:  store,
		logger: logger,
	}
}

// Store validates that the upload is a video and persists it under a
// per-user namespaced key, returning the public URL.
func (s *UploadService) Store(ctx context.Context, userID, filename, declaredType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrMissingInput
	}

	contentType := domain.NormalizeMIMEType(declaredType, filename)
	if !domain.IsVideoMIME(contentType) {
		return "", &domain.NotAVideoError{Declared: contentType}
	}

	key := objectKey(userID, filename)
	url, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	s.logger.Info("video stored",
		"user_id", userID,
		"key", key,
		"size", len(data),
		"content_type", contentType,
	)
	return url, nil
}

// objectKey builds the storage key: videos/{user_id}/{timestamp}-{random}-{filename}.
func objectKey(userID, filename string) string {
	random := uuid.NewString()[:8]
	return fmt.Sprintf("videos/%s/%d-%s-%s", userID, time.Now().UnixMilli(), random, SanitizeFilename(filename))
}

// SanitizeFilename keeps alphanumerics, dots, underscores and dashes,
// replacing everything else with an underscore.
func SanitizeFilename(name string) string {
	if name == "" {
		return "video.mp4"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
