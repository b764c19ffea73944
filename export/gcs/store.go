// Package gcs stores mailbox archives in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"github.com/rbaliyan/webmail/export"
	"google.golang.org/api/option"
)

const (
	scheme = "gs"
	scope  = "https://www.googleapis.com/auth/devstorage.read_write"
)

// ErrBucketRequired is returned by New without WithBucket.
var ErrBucketRequired = errors.New("gcs: bucket is required")

// Store is an export.BlobStore backed by one GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ export.BlobStore = (*Store)(nil)

// New creates a GCS blob store. Close releases the client.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := &options{
		prefix: "exports",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bucket == "" {
		return nil, ErrBucketRequired
	}

	clientOpts, err := clientOptions(o)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &Store{client: client, bucket: o.bucket, prefix: o.prefix, logger: o.logger}, nil
}

func clientOptions(o *options) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if o.credentialsJSON != nil || o.credentialsFile != "" {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{scope},
			CredentialsJSON: o.credentialsJSON,
			CredentialsFile: o.credentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs: detect credentials: %w", err)
		}
		opts = append(opts, option.WithAuthCredentials(creds))
	}
	if o.endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.endpoint))
	}
	return opts, nil
}

// Upload writes content to a new object and returns a gs://bucket/name URI.
func (s *Store) Upload(ctx context.Context, name, contentType string, content io.Reader) (string, error) {
	key := export.ObjectKey(s.prefix, name)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", key, err)
	}
	s.logger.Debug("uploaded archive to gcs", "bucket", s.bucket, "key", key)
	return fmt.Sprintf("%s://%s/%s", scheme, s.bucket, key), nil
}

func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := export.SplitURI(scheme, uri)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, uri string) error {
	bucket, key, err := export.SplitURI(scheme, uri)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	s.logger.Debug("deleted archive from gcs", "bucket", bucket, "key", key)
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
