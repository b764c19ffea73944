package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// orderClause is newest first with insertion order among ties.
const orderClause = "created_at DESC, seq ASC"

func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.table)

	var msg message
	if err := s.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
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

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.opts.table, where)
	var total int64
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`, messageColumns, s.opts.table, where, orderClause)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit+1)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
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

	messages := make([]store.Message, len(rows))
	for i, m := range rows {
		messages[i] = m
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  hasMore,
	}, total, nil
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

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.opts.table, where)

	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// buildWhereClause numbers placeholders from $1. Filters are validated first
// so an unsupported one fails the query instead of being dropped.
func buildWhereClause(filters []store.Filter) (string, []any, error) {
	if err := store.ValidateFilters(filters); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "1=1", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		conditions = append(conditions, filterToCondition(f, i+1))
		args = append(args, f.Value())
	}
	return strings.Join(conditions, " AND "), args, nil
}

// filterToCondition expects a validated filter.
func filterToCondition(f store.Filter, argIdx int) string {
	if f.Operator() == "contains" {
		return fmt.Sprintf("$%d = ANY(%s)", argIdx, f.Key())
	}
	return fmt.Sprintf("%s = $%d", f.Key(), argIdx)
}
