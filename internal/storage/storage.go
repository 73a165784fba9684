package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloudsyncpro/internal/config"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Open and Delete when the key has no object
var ErrObjectNotFound = errors.New("object not found")

// Provider stores uploaded file contents under opaque keys
type Provider interface {
	// Save streams r to key and returns the number of bytes written
	Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)

	// Open returns the object's content; the caller closes it
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, key string) error

	// URL is the public locator recorded with the file
	URL(key string) string
}

// NewKey builds a collision-free storage key: <yyyy>/<mm>/<uuid><ext>.
// ext comes from the sniffed content type; client filenames never reach a key.
func NewKey(ext string, now time.Time) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") || len(ext) > 16 || strings.ContainsAny(ext[1:], `./\`) {
		ext = ""
	}
	return fmt.Sprintf("%04d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)
}

// New selects the provider configured by STORAGE_DRIVER
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.StorageDriver {
	case "", "local":
		logger.Info("using local storage", "dir", cfg.UploadDir)
		return NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL)
	case "s3":
		logger.Info("using s3 storage", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
		return NewS3Storage(ctx, S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
