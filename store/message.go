package store

import (
	"time"
)

// Message is a read-only view of a stored mailbox entry.
// Entries cannot be directly modified; the only mutation is UpdateFlags.
type Message interface {
	GetID() string
	GetOwnerID() string
	GetSenderID() string
	GetRecipientIDs() []string
	GetSubject() string
	GetBody() string
	GetIsRead() bool
	GetIsArchived() bool
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// MessageData contains data for creating a new entry.
// CreatedAt is set by the caller so that every entry of one compose shares it.
type MessageData struct {
	OwnerID      string
	SenderID     string
	RecipientIDs []string
	Subject      string
	Body         string
	IsRead       bool
	CreatedAt    time.Time
}

// FlagUpdate is a partial update of an entry's flags.
// A nil field means "leave unchanged".
type FlagUpdate struct {
	Read     *bool
	Archived *bool
}

// IsEmpty reports whether the update changes nothing.
func (u FlagUpdate) IsEmpty() bool {
	return u.Read == nil && u.Archived == nil
}

// MessageList represents a page of entries.
type MessageList struct {
	Messages []Message
	Total    int64
	HasMore  bool
}

// User is a registered account. Email is the identity used as owner,
// sender and recipient throughout the store.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// UserData contains data for creating a new user.
type UserData struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
}
