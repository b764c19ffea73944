package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if uuid.Validate(id) != nil {
		return nil, store.ErrInvalidID
	}

	s.batchMu.RLock()
	defer s.batchMu.RUnlock()

	v, ok := s.messages.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*message).clone(), nil
}

// Find retrieves entries matching the filters.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	list, _, err := s.FindWithCount(ctx, filters, opts)
	return list, err
}

// FindWithCount retrieves a page of matching entries together with the total.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return nil, 0, err
	}

	all := s.collect(filters)
	sortMessages(all)
	total := int64(len(all))

	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	page := all[start:end]
	messages := make([]store.Message, len(page))
	for i, m := range page {
		messages[i] = m.clone()
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  end < len(all),
	}, total, nil
}

// Count returns the count of entries matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return 0, err
	}
	return int64(len(s.collect(filters))), nil
}

func (s *Store) collect(filters []store.Filter) []*message {
	s.batchMu.RLock()
	defer s.batchMu.RUnlock()

	var all []*message
	s.messages.Range(func(_, v any) bool {
		m := v.(*message)
		if matchesFilters(m, filters) {
			all = append(all, m)
		}
		return true
	})
	return all
}
