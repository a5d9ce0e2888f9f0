package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore is the storage backend seam. The ingestion service only needs to
// persist raw bytes under a path and obtain a serveable URL; vendor-specific
// APIs stay behind this interface.
type BlobStore interface {
	Save(ctx context.Context, path string, r io.Reader) (url string, err error)
	Remove(ctx context.Context, path string) error
}

const (
	DefaultBaseDir    = "./uploads"
	DefaultStaticBase = "/static/uploads"
)

// DiskStore writes blobs to the local filesystem and serves them from a
// static URL prefix.
type DiskStore struct {
	baseDir    string // absolute path to uploads dir
	staticBase string // URL prefix for serving files
}

func NewDiskStore(baseDir, staticBase string) *DiskStore {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if staticBase == "" {
		staticBase = DefaultStaticBase
	}
	return &DiskStore{baseDir: baseDir, staticBase: staticBase}
}

func (s *DiskStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("write file: %w", err)
	}

	return s.staticBase + "/" + strings.ReplaceAll(path, "\\", "/"), nil
}

func (s *DiskStore) Remove(ctx context.Context, path string) error {
	return os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(path)))
}
