package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// listSort is newest first with _id (client-generated in batch order) breaking ties.
var listSort = bson.D{
	bson.E{Key: "created_at", Value: -1},
	bson.E{Key: "_id", Value: 1},
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc messageDoc
	if err := s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return docToMessage(&doc), nil
}

// Find retrieves entries matching the filters.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	list, _, err := s.FindWithCount(ctx, filters, opts)
	return list, err
}

// FindWithCount returns a page of matching entries and the total match count.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}

	filter, err := buildFilter(filters)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	findOpts := mongoopts.Find().SetSort(listSort)
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit + 1))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode messages: %w", err)
	}

	hasMore := opts.Limit > 0 && len(docs) > opts.Limit
	if hasMore {
		docs = docs[:opts.Limit]
	}

	messages := make([]store.Message, len(docs))
	for i := range docs {
		messages[i] = docToMessage(&docs[i])
	}
	return &store.MessageList{Messages: messages, Total: total, HasMore: hasMore}, total, nil
}

// Count returns the count of entries matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	filter, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return s.collection.CountDocuments(ctx, filter)
}

// buildFilter converts store filters into a BSON query document. Each
// filter becomes its own clause under $and so two filters on one key both
// apply. Equality on the recipient array matches any element, which is
// what "contains" means there.
func buildFilter(filters []store.Filter) (bson.M, error) {
	if err := store.ValidateFilters(filters); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return bson.M{}, nil
	}

	clauses := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		key, val := f.Key(), f.Value()
		if key == "id" {
			key = "_id"
			if s, ok := val.(string); ok {
				oid, err := bson.ObjectIDFromHex(s)
				if err != nil {
					return nil, store.ErrInvalidID
				}
				val = oid
			}
		}
		clauses = append(clauses, bson.M{key: val})
	}
	return bson.M{"$and": clauses}, nil
}
