package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rbaliyan/webmail/store"
)

// CreateMessages inserts all entries in one transaction.
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, sender_id, recipient_ids, subject, body,
		                is_read, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $8)
		RETURNING seq
	`, s.opts.table)

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
			RecipientIDs: pq.StringArray(append([]string(nil), d.RecipientIDs...)),
			Subject:      d.Subject,
			Body:         d.Body,
			IsRead:       d.IsRead,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
		err := tx.QueryRowxContext(ctx, query,
			msg.ID, msg.OwnerID, msg.SenderID, pq.Array(d.RecipientIDs), msg.Subject, msg.Body,
			msg.IsRead, msg.CreatedAt,
		).Scan(&msg.Seq)
		if err != nil {
			return nil, fmt.Errorf("%w: insert: %v", store.ErrTransactionFailed, err)
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
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_read = COALESCE($1, is_read),
		    is_archived = COALESCE($2, is_archived),
		    updated_at = CASE WHEN $1 IS NULL AND $2 IS NULL THEN updated_at ELSE $3 END
		WHERE id = $4 AND owner_id = $5
	`, s.opts.table)

	result, err := s.db.ExecContext(ctx, query,
		nullBool(update.Read), nullBool(update.Archived), time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("update flags: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
