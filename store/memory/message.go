package memory

import (
	"time"

	"github.com/rbaliyan/webmail/store"
)

// message is the internal representation of a mailbox entry.
type message struct {
	id           string
	seq          int64
	ownerID      string
	senderID     string
	recipientIDs []string
	subject      string
	body         string
	isRead       bool
	isArchived   bool
	createdAt    time.Time
	updatedAt    time.Time
}

// clone creates a deep copy of the message.
func (m *message) clone() *message {
	c := *m
	if m.recipientIDs != nil {
		c.recipientIDs = make([]string, len(m.recipientIDs))
		copy(c.recipientIDs, m.recipientIDs)
	}
	return &c
}

func (m *message) GetID() string           { return m.id }
func (m *message) GetOwnerID() string      { return m.ownerID }
func (m *message) GetSenderID() string     { return m.senderID }
func (m *message) GetSubject() string      { return m.subject }
func (m *message) GetBody() string         { return m.body }
func (m *message) GetIsRead() bool         { return m.isRead }
func (m *message) GetIsArchived() bool     { return m.isArchived }
func (m *message) GetCreatedAt() time.Time { return m.createdAt }
func (m *message) GetUpdatedAt() time.Time { return m.updatedAt }

func (m *message) GetRecipientIDs() []string {
	if m.recipientIDs == nil {
		return nil
	}
	out := make([]string, len(m.recipientIDs))
	copy(out, m.recipientIDs)
	return out
}

var _ store.Message = (*message)(nil)
