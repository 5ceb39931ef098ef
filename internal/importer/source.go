package importer

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/dvloznov/household-budget/internal/gcsuploader"
	"github.com/pkg/errors"
)

// Source opens an export by URI.
type Source interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// FileSource reads from the local filesystem.
type FileSource struct{}

func (FileSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// GCSSource reads gs:// objects.
type GCSSource struct {
	Storage gcsuploader.StorageService
}

func (s GCSSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	data, err := s.Storage.Fetch(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// MultiSource dispatches gs:// URIs to GCS and everything else to Local.
// GCS may be nil when no bucket access is configured.
type MultiSource struct {
	Local Source
	GCS   Source
}

func (m MultiSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if gcsuploader.IsGCSURI(uri) {
		if m.GCS == nil {
			return nil, errors.Errorf("open %s: no storage client configured for gs:// imports", uri)
		}
		return m.GCS.Open(ctx, uri)
	}
	if m.Local == nil {
		return FileSource{}.Open(ctx, uri)
	}
	return m.Local.Open(ctx, uri)
}
