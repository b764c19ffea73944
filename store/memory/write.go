package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// UpdateFlags applies a partial flag update to an entry owned by ownerID.
func (s *Store) UpdateFlags(ctx context.Context, ownerID, id string, update store.FlagUpdate) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if uuid.Validate(id) != nil {
		return store.ErrInvalidID
	}

	lock := s.getMsgLock(id)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.messages.Load(id)
	if !ok {
		return store.ErrNotFound
	}
	m := v.(*message)
	if m.ownerID != ownerID {
		return store.ErrNotFound
	}
	if update.IsEmpty() {
		return nil
	}

	// Copy-on-write so readers holding the old pointer never see a torn update.
	c := m.clone()
	if update.Read != nil {
		c.isRead = *update.Read
	}
	if update.Archived != nil {
		c.isArchived = *update.Archived
	}
	c.updatedAt = time.Now().UTC()
	s.messages.Store(id, c)
	return nil
}
