package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/rbaliyan/webmail/store"
)

// Compile-time check
var _ store.Message = (*message)(nil)

// messageColumns is the canonical SELECT column list, matching the db tags on message.
const messageColumns = `seq, id, owner_id, sender_id, recipient_ids, subject, body,
       is_read, is_archived, created_at, updated_at`

// message is scanned directly by sqlx.
type message struct {
	Seq          int64          `db:"seq"`
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	SenderID     string         `db:"sender_id"`
	RecipientIDs pq.StringArray `db:"recipient_ids"`
	Subject      string         `db:"subject"`
	Body         string         `db:"body"`
	IsRead       bool           `db:"is_read"`
	IsArchived   bool           `db:"is_archived"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (m *message) GetID() string             { return m.ID }
func (m *message) GetOwnerID() string        { return m.OwnerID }
func (m *message) GetSenderID() string       { return m.SenderID }
func (m *message) GetRecipientIDs() []string { return []string(m.RecipientIDs) }
func (m *message) GetSubject() string        { return m.Subject }
func (m *message) GetBody() string           { return m.Body }
func (m *message) GetIsRead() bool           { return m.IsRead }
func (m *message) GetIsArchived() bool       { return m.IsArchived }
func (m *message) GetCreatedAt() time.Time   { return m.CreatedAt.UTC() }
func (m *message) GetUpdatedAt() time.Time   { return m.UpdatedAt.UTC() }

// userRow is the sqlx scan target for the user table.
type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *userRow) toUser() *store.User {
	return &store.User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}
