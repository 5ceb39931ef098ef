package flatfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dvloznov/household-budget/internal/gcsuploader"
)

// errNotFound marks a table file that does not exist yet.
var errNotFound = errors.New("table file not found")

// Blob reads and writes whole named files.
type Blob interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Location() string
}

// DirBlob stores files in a local directory.
type DirBlob struct {
	Dir string
}

func (b DirBlob) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNotFound
	}
	return data, err
}

// Write replaces the file atomically through a temp file and rename.
func (b DirBlob) Write(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("DirBlob.Write: mkdir %s: %w", b.Dir, err)
	}
	tmp, err := os.CreateTemp(b.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("DirBlob.Write: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("DirBlob.Write: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("DirBlob.Write: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(b.Dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("DirBlob.Write: rename: %w", err)
	}
	return nil
}

func (b DirBlob) Location() string { return b.Dir }

// GCSBlob stores files under gs://Bucket/Prefix.
type GCSBlob struct {
	Storage gcsuploader.StorageService
	Bucket  string
	Prefix  string
}

func (b GCSBlob) uri(name string) string {
	return gcsuploader.URI(b.Bucket, path.Join(b.Prefix, name))
}

func (b GCSBlob) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := b.Storage.Fetch(ctx, b.uri(name))
	if gcsuploader.IsNotExist(err) {
		return nil, errNotFound
	}
	return data, err
}

func (b GCSBlob) Write(ctx context.Context, name string, data []byte) error {
	return b.Storage.UploadBytes(ctx, b.uri(name), data, "text/csv")
}

func (b GCSBlob) Location() string {
	return gcsuploader.URI(b.Bucket, b.Prefix)
}
