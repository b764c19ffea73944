package mongo

import (
	"time"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ store.Message = (*message)(nil)

// messageDoc is the BSON representation of an entry. IDs are generated
// client-side in batch order so _id breaks created_at ties by insertion.
type messageDoc struct {
	ID           bson.ObjectID `bson:"_id"`
	OwnerID      string        `bson:"owner_id"`
	SenderID     string        `bson:"sender_id"`
	RecipientIDs []string      `bson:"recipient_ids"`
	Subject      string        `bson:"subject"`
	Body         string        `bson:"body"`
	IsRead       bool          `bson:"is_read"`
	IsArchived   bool          `bson:"is_archived"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

type message struct {
	id           string
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

func (m *message) GetID() string             { return m.id }
func (m *message) GetOwnerID() string        { return m.ownerID }
func (m *message) GetSenderID() string       { return m.senderID }
func (m *message) GetRecipientIDs() []string { return m.recipientIDs }
func (m *message) GetSubject() string        { return m.subject }
func (m *message) GetBody() string           { return m.body }
func (m *message) GetIsRead() bool           { return m.isRead }
func (m *message) GetIsArchived() bool       { return m.isArchived }
func (m *message) GetCreatedAt() time.Time   { return m.createdAt }
func (m *message) GetUpdatedAt() time.Time   { return m.updatedAt }

func docToMessage(doc *messageDoc) *message {
	return &message{
		id:           doc.ID.Hex(),
		ownerID:      doc.OwnerID,
		senderID:     doc.SenderID,
		recipientIDs: doc.RecipientIDs,
		subject:      doc.Subject,
		body:         doc.Body,
		isRead:       doc.IsRead,
		isArchived:   doc.IsArchived,
		createdAt:    doc.CreatedAt.UTC(),
		updatedAt:    doc.UpdatedAt.UTC(),
	}
}

type userDoc struct {
	ID           bson.ObjectID `bson:"_id"`
	Email        string        `bson:"email"`
	FirstName    string        `bson:"first_name"`
	LastName     string        `bson:"last_name"`
	PasswordHash []byte        `bson:"password_hash"`
	CreatedAt    time.Time     `bson:"created_at"`
}

func (d *userDoc) toUser() *store.User {
	return &store.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}
