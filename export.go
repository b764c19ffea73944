package webmail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Exporter turns a folder's entries into an archive and returns where it
// was written. The export package provides an implementation backed by blob
// storage.
type Exporter interface {
	Export(ctx context.Context, owner string, folder Folder, entries []Entry) (uri string, err error)
}

// ExportResult describes a finished export.
type ExportResult struct {
	Folder  Folder
	Count   int
	URI     string
	Created time.Time
}

func (m *userMailbox) Export(ctx context.Context, folder string) (*ExportResult, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	s := m.service
	if s.opts.exporter == nil {
		return nil, ErrExportNotConfigured
	}
	f, err := ParseFolder(folder)
	if err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "webmail.export",
		attribute.String("user_id", m.userID),
		attribute.String("folder", f.String()),
	)
	start := time.Now()
	var exportErr error
	var count int
	defer func() {
		endSpan(exportErr)
		s.otel.recordExport(ctx, time.Since(start), f, count, exportErr)
	}()

	var entries []Entry
	opts := ListOptions{Limit: DefaultExportBatchSize}
	if opts.Limit > s.opts.maxQueryLimit {
		opts.Limit = s.opts.maxQueryLimit
	}
	for {
		page, err := m.find(ctx, f.filters(m.userID), opts)
		if err != nil {
			exportErr = err
			return nil, err
		}
		entries = append(entries, newEntries(page.Messages)...)
		if !page.HasMore || len(page.Messages) == 0 {
			break
		}
		opts.Offset += len(page.Messages)
	}
	count = len(entries)

	uri, err := s.opts.exporter.Export(ctx, m.userID, f, entries)
	if err != nil {
		exportErr = fmt.Errorf("export %s: %w", f, err)
		return nil, exportErr
	}

	s.logger.Info("exported folder", "user", m.userID, "folder", f, "count", count, "uri", uri)
	return &ExportResult{
		Folder:  f,
		Count:   count,
		URI:     uri,
		Created: start.UTC(),
	}, nil
}
