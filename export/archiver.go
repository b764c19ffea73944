// Package export renders mailbox folders as mbox archives and uploads them
// to blob storage. An *Archiver satisfies webmail.Exporter.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbaliyan/webmail"
)

// ErrBlobStoreRequired is returned by New without a blob store.
var ErrBlobStoreRequired = errors.New("export: blob store is required")

// Archiver renders folders and uploads them.
type Archiver struct {
	blobs  BlobStore
	opts   *options
	logger *slog.Logger
}

var _ webmail.Exporter = (*Archiver)(nil)

// New creates an Archiver writing to blobs.
func New(blobs BlobStore, opts ...Option) (*Archiver, error) {
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	o := newOptions(opts...)
	return &Archiver{blobs: blobs, opts: o, logger: o.logger}, nil
}

// Export renders entries as one mbox file named after owner and folder and
// returns the blob URI. An empty folder still produces an (empty) archive.
func (a *Archiver) Export(ctx context.Context, owner string, folder webmail.Folder, entries []webmail.Entry) (string, error) {
	var buf bytes.Buffer
	if err := WriteMbox(&buf, entries, a.opts.hostname); err != nil {
		return "", fmt.Errorf("export: render: %w", err)
	}

	name := archiveName(owner, folder, a.opts.clock())
	size := buf.Len()
	uri, err := a.blobs.Upload(ctx, name, ContentType, &buf)
	if err != nil {
		return "", fmt.Errorf("export: upload: %w", err)
	}
	a.logger.Debug("uploaded archive", "owner", owner, "folder", folder, "entries", len(entries), "bytes", size, "uri", uri)
	return uri, nil
}

// Open returns a reader for an archive written by Export.
func (a *Archiver) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	r, err := a.blobs.Load(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("export: open: %w", err)
	}
	return r, nil
}

// Remove deletes an archive written by Export.
func (a *Archiver) Remove(ctx context.Context, uri string) error {
	if err := a.blobs.Delete(ctx, uri); err != nil {
		return fmt.Errorf("export: remove: %w", err)
	}
	return nil
}

// archiveName builds "<owner>/<folder>-<UTC timestamp>.mbox" with the owner
// reduced to characters safe in object keys and file names.
func archiveName(owner string, folder webmail.Folder, at time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '@', r == '.', r == '-', r == '_', r == '+':
			return r
		default:
			return '_'
		}
	}, owner)
	return fmt.Sprintf("%s/%s-%s.mbox", safe, folder, at.UTC().Format("20060102T150405Z"))
}
