package webmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/webmail/store"
	"go.opentelemetry.io/otel/attribute"
)

func (m *userMailbox) Inbox(ctx context.Context, opts ListOptions) (*EntryList, error) {
	return m.list(ctx, FolderInbox, opts)
}

func (m *userMailbox) Sent(ctx context.Context, opts ListOptions) (*EntryList, error) {
	return m.list(ctx, FolderSent, opts)
}

func (m *userMailbox) Archive(ctx context.Context, opts ListOptions) (*EntryList, error) {
	return m.list(ctx, FolderArchive, opts)
}

func (m *userMailbox) List(ctx context.Context, folder string, opts ListOptions) (*EntryList, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	f, err := ParseFolder(folder)
	if err != nil {
		return nil, err
	}
	return m.list(ctx, f, opts)
}

func (m *userMailbox) list(ctx context.Context, folder Folder, opts ListOptions) (*EntryList, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.list",
		attribute.String("user_id", m.userID),
		attribute.String("folder", folder.String()),
	)
	start := time.Now()
	var listErr error
	var resultCount int
	defer func() {
		endSpan(listErr)
		m.service.otel.recordList(ctx, time.Since(start), folder, resultCount, listErr)
	}()

	list, err := m.find(ctx, folder.filters(m.userID), opts)
	if err != nil {
		listErr = err
		return nil, err
	}
	resultCount = len(list.Messages)

	return &EntryList{
		Entries: newEntries(list.Messages),
		Total:   list.Total,
		HasMore: list.HasMore,
	}, nil
}

// find fetches entries with their total. A zero limit returns every match;
// a set limit is capped at the service maximum.
func (m *userMailbox) find(ctx context.Context, filters []store.Filter, opts ListOptions) (*store.MessageList, error) {
	if opts.Limit < 0 {
		opts.Limit = 0
	}
	if opts.Limit > m.service.opts.maxQueryLimit {
		opts.Limit = m.service.opts.maxQueryLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	if fwc, ok := m.service.store.(store.FindWithCounter); ok {
		list, total, err := fwc.FindWithCount(ctx, filters, opts)
		if err != nil {
			return nil, fmt.Errorf("find entries: %w", err)
		}
		list.Total = total
		return list, nil
	}

	list, err := m.service.store.Find(ctx, filters, opts)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	total, err := m.service.store.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	list.Total = total
	return list, nil
}

func (m *userMailbox) Get(ctx context.Context, id string) (Entry, error) {
	if err := m.checkAccess(); err != nil {
		return Entry{}, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.get",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", id),
	)
	start := time.Now()
	var getErr error
	defer func() {
		endSpan(getErr)
		m.service.otel.recordGet(ctx, time.Since(start), getErr)
	}()

	msg, err := m.service.store.Get(ctx, id)
	if err != nil {
		getErr = translateLookupError(id, err)
		return Entry{}, getErr
	}
	// Another user's entry is indistinguishable from a missing one.
	if msg.GetOwnerID() != m.userID {
		getErr = fmt.Errorf("%w: %s", ErrNotFound, id)
		return Entry{}, getErr
	}
	return newEntry(msg), nil
}

// translateLookupError maps store lookup errors to the package sentinels.
func translateLookupError(id string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case errors.Is(err, store.ErrInvalidID):
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	default:
		return fmt.Errorf("get entry: %w", err)
	}
}
