package sqlite

import (
	"time"

	"github.com/rbaliyan/webmail/store"
)

var _ store.Message = (*message)(nil)

const messageColumns = `seq, id, owner_id, sender_id, subject, body, is_read, is_archived, created_at, updated_at`

// message is the sqlx scan target. Timestamps are stored as Unix nanoseconds
// and recipients live in message_recipients.
type message struct {
	Seq        int64  `db:"seq"`
	ID         string `db:"id"`
	OwnerID    string `db:"owner_id"`
	SenderID   string `db:"sender_id"`
	Subject    string `db:"subject"`
	Body       string `db:"body"`
	IsRead     bool   `db:"is_read"`
	IsArchived bool   `db:"is_archived"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`

	recipientIDs []string
}

func (m *message) GetID() string           { return m.ID }
func (m *message) GetOwnerID() string      { return m.OwnerID }
func (m *message) GetSenderID() string     { return m.SenderID }
func (m *message) GetSubject() string      { return m.Subject }
func (m *message) GetBody() string         { return m.Body }
func (m *message) GetIsRead() bool         { return m.IsRead }
func (m *message) GetIsArchived() bool     { return m.IsArchived }
func (m *message) GetCreatedAt() time.Time { return time.Unix(0, m.CreatedAt).UTC() }
func (m *message) GetUpdatedAt() time.Time { return time.Unix(0, m.UpdatedAt).UTC() }

func (m *message) GetRecipientIDs() []string {
	out := make([]string, len(m.recipientIDs))
	copy(out, m.recipientIDs)
	return out
}

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	PasswordHash []byte `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (r *userRow) toUser() *store.User {
	return &store.User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
	}
}
