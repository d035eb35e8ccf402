// Package storage keeps exported treatment reports in object storage.
//
// Two providers implement Storage:
// - LocalStorage: a directory on disk, for development and the CLI
// - R2Storage: Cloudflare R2 through the S3 API, for production
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is a flat key/value object store. All methods honour ctx.
type Storage interface {
	// Put writes data at key. Without opts.Overwrite an existing key yields
	// ErrKeyExists.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller closes the reader. A missing
	// key yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a download URL, presigned for expires when the provider
	// supports it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures a write.
type PutOptions struct {
	ContentType string // Detected from the key when empty
	MaxSize     int64  // Zero means unlimited
	Overwrite   bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
	BaseURL  string // e.g. "http://localhost:8080/files"
}

// R2Config configures R2Storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // Optional custom domain; presigned URLs otherwise
	Region          string // Defaults to "auto"
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
}

// New builds the configured provider.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Keys
// =============================================================================

// ReportKey builds the key for an exported report:
// reports/{ownerID}/{YYYY}/{MM}/{exportID}/treatment-report-{YYYY-MM-DD}.{ext}
func ReportKey(owner, exportID uuid.UUID, filename string, generatedAt time.Time) string {
	return path.Join(
		"reports",
		owner.String(),
		generatedAt.Format("2006"),
		generatedAt.Format("01"),
		exportID.String(),
		path.Base(filename),
	)
}

// ReportOwner returns the user a report key was issued to.
func ReportOwner(key string) (uuid.UUID, bool) {
	if !IsReportKey(key) {
		return uuid.Nil, false
	}
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return uuid.Nil, false
	}
	owner, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return owner, true
}

// IsReportKey reports whether key looks like a key produced by ReportKey.
func IsReportKey(key string) bool {
	return ValidateKey(key) == nil && strings.HasPrefix(key, "reports/")
}

// ValidateKey rejects empty keys, absolute keys and parent traversal.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
