package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// BlobStore is where rendered archives are written.
// Implementations exist for S3 (export/s3), GCS (export/gcs) and the local
// filesystem (DirStore); export/otel wraps any of them with telemetry.
type BlobStore interface {
	// Upload stores content under a key derived from name and returns a URI
	// for later retrieval.
	Upload(ctx context.Context, name, contentType string, content io.Reader) (uri string, err error)

	// Load returns a reader for a previously uploaded blob.
	// Caller is responsible for closing the reader.
	Load(ctx context.Context, uri string) (io.ReadCloser, error)

	// Delete removes a blob.
	Delete(ctx context.Context, uri string) error
}

// ErrInvalidURI is returned for a blob URI a store does not recognize.
var ErrInvalidURI = errors.New("export: invalid blob uri")

// ObjectKey joins prefix and name with a random path element so repeated
// exports of the same folder within one second never overwrite each other.
func ObjectKey(prefix, name string) string {
	dir, file := path.Split(name)
	return path.Join(prefix, dir, uuid.NewString()[:8]+"-"+file)
}

// SplitURI splits "<scheme>://<bucket>/<key>" into bucket and key.
func SplitURI(scheme, uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not a %s uri", ErrInvalidURI, uri, scheme)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q has no object key", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}
