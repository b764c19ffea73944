package memory

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// newMessageFromData creates a message struct from MessageData.
func newMessageFromData(data store.MessageData, id string, seq int64) *message {
	createdAt := data.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	m := &message{
		id:        id,
		seq:       seq,
		ownerID:   data.OwnerID,
		senderID:  data.SenderID,
		subject:   data.Subject,
		body:      data.Body,
		isRead:    data.IsRead,
		createdAt: createdAt,
		updatedAt: createdAt,
	}
	if data.RecipientIDs != nil {
		m.recipientIDs = make([]string, len(data.RecipientIDs))
		copy(m.recipientIDs, data.RecipientIDs)
	}
	return m
}

// CreateMessages creates multiple entries atomically. Readers hold the
// batch read lock, so they see either none or all of the batch.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, store.ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	built := make([]*message, len(data))
	for i, d := range data {
		built[i] = newMessageFromData(d, uuid.New().String(), 0)
	}

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	messages := make([]store.Message, len(built))
	for i, m := range built {
		m.seq = atomic.AddInt64(&s.seq, 1)
		s.messages.Store(m.id, m)
		messages[i] = m.clone()
	}
	return messages, nil
}
