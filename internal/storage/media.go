// Package storage persists envelope media on the ingress side. Storage is
// best effort: a failed write is logged and the message is still accepted.
package storage

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kawourelay/internal/constants"
	"kawourelay/internal/errors"
	"kawourelay/internal/models"
	"kawourelay/internal/security"

	"github.com/sirupsen/logrus"
)

// MediaStore writes received attachments to a local directory.
type MediaStore struct {
	dir    string
	logger *logrus.Logger
	now    func() time.Time
}

// NewMediaStore creates the store and its backing directory.
func NewMediaStore(dir string, logger *logrus.Logger) (*MediaStore, error) {
	if err := security.ValidateFilePath(dir); err != nil {
		return nil, fmt.Errorf("invalid media directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &MediaStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Store decodes and writes one attachment, returning the public relative
// path. The filename combines the current time, the message ID and an
// extension derived from the MIME subtype so resubmissions never collide.
func (s *MediaStore) Store(messageID string, media *models.EnvelopeMedia) (string, error) {
	data, err := base64.StdEncoding.DecodeString(media.Base64)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeMediaStorage, "failed to decode media payload")
	}

	filename := fmt.Sprintf("%d-%s.%s",
		s.now().UnixMilli(),
		security.SanitizeIdentifier(messageID),
		extensionFromMimeType(media.MimeType),
	)

	fullPath := filepath.Join(s.dir, filename)
	if err := os.WriteFile(fullPath, data, 0600); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeMediaStorage, "failed to write media file")
	}

	s.logger.WithFields(logrus.Fields{
		"path":    "/media/" + filename,
		"size_kb": len(data) / 1024,
	}).Info("Media stored")

	return "/media/" + filename, nil
}

// Dir returns the backing directory, for static file serving.
func (s *MediaStore) Dir() string {
	return s.dir
}

// extensionFromMimeType takes the MIME subtype, strips everything but
// lowercase alphanumerics and falls back to "bin".
func extensionFromMimeType(mimeType string) string {
	_, subtype, found := strings.Cut(mimeType, "/")
	if !found {
		return constants.DefaultExtension
	}

	var b strings.Builder
	for _, r := range strings.ToLower(subtype) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return constants.DefaultExtension
	}
	return b.String()
}
