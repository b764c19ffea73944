package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rbaliyan/webmail/store"
)

const orderClause = "created_at DESC, seq ASC"

func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if uuid.Validate(id) != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var msg message
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id = ?`, messageColumns)
	if err := s.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if err := s.loadRecipients(ctx, []*message{&msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	list, _, err := s.FindWithCount(ctx, filters, opts)
	return list, err
}

// FindWithCount returns a page of matching entries and the total match count.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}

	where, args, err := buildWhereClause(filters)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s ORDER BY %s`, messageColumns, where, orderClause)
	switch {
	case opts.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit+1, opts.Offset)
	case opts.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}

	var rows []*message
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}

	hasMore := opts.Limit > 0 && len(rows) > opts.Limit
	if hasMore {
		rows = rows[:opts.Limit]
	}
	if err := s.loadRecipients(ctx, rows); err != nil {
		return nil, 0, err
	}

	messages := make([]store.Message, len(rows))
	for i, m := range rows {
		messages[i] = m
	}
	return &store.MessageList{Messages: messages, Total: total, HasMore: hasMore}, total, nil
}

func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	where, args, err := buildWhereClause(filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE `+where, args...); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// loadRecipients fills recipientIDs for all rows with one IN query.
func (s *Store) loadRecipients(ctx context.Context, rows []*message) error {
	if len(rows) == 0 {
		return nil
	}
	byID := make(map[string]*message, len(rows))
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	query, args, err := sqlx.In(`SELECT message_id, email FROM message_recipients
		WHERE message_id IN (?) ORDER BY message_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build recipients query: %w", err)
	}

	var recips []struct {
		MessageID string `db:"message_id"`
		Email     string `db:"email"`
	}
	if err := s.db.SelectContext(ctx, &recips, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("query recipients: %w", err)
	}
	for _, r := range recips {
		if m, ok := byID[r.MessageID]; ok {
			m.recipientIDs = append(m.recipientIDs, r.Email)
		}
	}
	return nil
}

func buildWhereClause(filters []store.Filter) (string, []any, error) {
	if err := store.ValidateFilters(filters); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "1=1", nil, nil
	}
	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		conditions = append(conditions, filterToCondition(f))
		args = append(args, sqliteValue(f.Value()))
	}
	return strings.Join(conditions, " AND "), args, nil
}

// filterToCondition expects a validated filter.
func filterToCondition(f store.Filter) string {
	if f.Operator() == "contains" {
		return `EXISTS (SELECT 1 FROM message_recipients r WHERE r.message_id = messages.id AND r.email = ?)`
	}
	return f.Key() + " = ?"
}

// sqliteValue converts filter values to their stored representation.
func sqliteValue(v any) any {
	switch vv := v.(type) {
	case bool:
		if vv {
			return 1
		}
		return 0
	case time.Time:
		return vv.UnixNano()
	default:
		return v
	}
}
