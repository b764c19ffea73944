package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirStore is a BlobStore writing archives below a local directory.
// URIs have the form file://<absolute path>.
type DirStore struct {
	root string
}

var _ BlobStore = (*DirStore)(nil)

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("export: resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", abs, err)
	}
	return &DirStore{root: abs}, nil
}

// Upload writes to a temporary file first and renames it into place, so a
// reader never sees a partial archive.
func (d *DirStore) Upload(ctx context.Context, name, _ string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := filepath.Join(d.root, filepath.FromSlash(ObjectKey("", name)))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("export: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("export: write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("export: rename %s: %w", target, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}

func (d *DirStore) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	p, err := d.path(uri)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("export: open: %w", err)
	}
	return f, nil
}

func (d *DirStore) Delete(ctx context.Context, uri string) error {
	p, err := d.path(uri)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("export: remove: %w", err)
	}
	return nil
}

// path resolves uri and rejects anything outside root.
func (d *DirStore) path(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", fmt.Errorf("%w: %q is not a file uri", ErrInvalidURI, uri)
	}
	p := filepath.Clean(filepath.FromSlash(rest))
	rel, err := filepath.Rel(d.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidURI, uri, d.root)
	}
	return p, nil
}
