package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// CreateMessages inserts all entries and their recipient rows in one transaction.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, store.ErrEmptyBatch
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", store.ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	messages := make([]store.Message, len(data))
	for i, d := range data {
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		msg := &message{
			ID:           uuid.New().String(),
			OwnerID:      d.OwnerID,
			SenderID:     d.SenderID,
			Subject:      d.Subject,
			Body:         d.Body,
			IsRead:       d.IsRead,
			CreatedAt:    createdAt.UnixNano(),
			UpdatedAt:    createdAt.UnixNano(),
			recipientIDs: append([]string(nil), d.RecipientIDs...),
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO messages
			(id, owner_id, sender_id, subject, body, is_read, is_archived, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?);`,
			msg.ID, msg.OwnerID, msg.SenderID, msg.Subject, msg.Body,
			sqliteValue(msg.IsRead), msg.CreatedAt, msg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: insert message: %v", store.ErrTransactionFailed, err)
		}
		if msg.Seq, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("%w: last insert id: %v", store.ErrTransactionFailed, err)
		}

		for pos, email := range d.RecipientIDs {
			_, err := tx.ExecContext(ctx, `INSERT INTO message_recipients (message_id, position, email)
				VALUES (?, ?, ?);`, msg.ID, pos, email)
			if err != nil {
				return nil, fmt.Errorf("%w: insert recipient: %v", store.ErrTransactionFailed, err)
			}
		}
		messages[i] = msg
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", store.ErrTransactionFailed, err)
	}
	return messages, nil
}

// UpdateFlags applies a partial flag update in one owner-scoped statement.
func (s *Store) UpdateFlags(ctx context.Context, ownerID, id string, update store.FlagUpdate) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if uuid.Validate(id) != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := `UPDATE messages SET
		is_read = COALESCE(?, is_read),
		is_archived = COALESCE(?, is_archived),
		updated_at = ?
		WHERE id = ? AND owner_id = ?;`
	if update.IsEmpty() {
		query = `UPDATE messages SET updated_at = updated_at WHERE id = ? AND owner_id = ?;`
	}

	args := []any{id, ownerID}
	if !update.IsEmpty() {
		args = []any{optionalFlag(update.Read), optionalFlag(update.Archived), time.Now().UTC().UnixNano(), id, ownerID}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update flags: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func optionalFlag(b *bool) any {
	if b == nil {
		return nil
	}
	return sqliteValue(*b)
}
