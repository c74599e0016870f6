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

// ErrNotFound is returned by Download when nothing is stored under the path
var ErrNotFound = errors.New("stored document not found")

// Storage interface for claim document storage operations
type Storage interface {
	// Upload stores a document of a claim and returns the storage path
	Upload(ctx context.Context, claimID string, fileID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves a document by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a document by storage path
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Endpoint   string // Optional, for S3 compatible services
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		path := cfg.LocalPath
		if path == "" {
			path = "./uploads"
		}
		return NewLocalStorage(path)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("an S3 bucket is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// generateStoragePath generates a unique flat storage path for a document:
// <claimID>_<first 8 hex chars of fileID><ext>
func generateStoragePath(claimID string, fileID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	// Sanitize claim id
	claimID = strings.ReplaceAll(claimID, " ", "_")
	claimID = strings.ReplaceAll(claimID, "/", "_")
	claimID = strings.ReplaceAll(claimID, "\\", "_")

	hex := strings.ReplaceAll(fileID.String(), "-", "")
	return fmt.Sprintf("%s_%s%s", claimID, hex[:8], ext)
}

// ContentTypeFor determines content type from filename
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// cleanPath rejects storage paths that would escape the storage root
func cleanPath(storagePath string) (string, error) {
	p := filepath.ToSlash(filepath.Clean("/" + storagePath))
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("invalid storage path %q", storagePath)
	}
	return p, nil
}
