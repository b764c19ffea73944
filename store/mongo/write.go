package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CreateMessages inserts all entries in a transaction. If the deployment
// does not support transactions (standalone), it falls back to an ordered
// InsertMany.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, store.ErrEmptyBatch
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	docs := make([]any, len(data))
	docRefs := make([]*messageDoc, len(data))
	for i, d := range data {
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		doc := &messageDoc{
			ID:           bson.NewObjectID(),
			OwnerID:      d.OwnerID,
			SenderID:     d.SenderID,
			RecipientIDs: append([]string{}, d.RecipientIDs...),
			Subject:      d.Subject,
			Body:         d.Body,
			IsRead:       d.IsRead,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
		docs[i] = doc
		docRefs[i] = doc
	}

	session, err := s.client.StartSession()
	if err != nil {
		s.logger.Warn("mongo sessions unavailable, compose is not atomic", "error", err)
		return s.insertManyFallback(ctx, docs, docRefs)
	}
	defer session.EndSession(ctx)

	_, txErr := session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		if _, err := s.collection.InsertMany(sessCtx, docs); err != nil {
			return nil, fmt.Errorf("insert messages: %w", err)
		}
		return nil, nil
	})
	if txErr != nil {
		if isTransactionNotSupported(txErr) {
			s.logger.Warn("mongo transactions unsupported, compose is not atomic", "entries", len(docs))
			return s.insertManyFallback(ctx, docs, docRefs)
		}
		return nil, fmt.Errorf("%w: %v", store.ErrTransactionFailed, txErr)
	}

	return toMessages(docRefs), nil
}

// insertManyFallback performs a non-transactional ordered InsertMany. On
// failure it deletes whatever part of the batch was written; a crash between
// the two calls can still leave a partial fan-out behind.
func (s *Store) insertManyFallback(ctx context.Context, docs []any, docRefs []*messageDoc) ([]store.Message, error) {
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		ids := make([]bson.ObjectID, len(docRefs))
		for i, d := range docRefs {
			ids[i] = d.ID
		}
		if _, delErr := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); delErr != nil {
			s.logger.Error("failed to remove partial batch", "entries", len(ids), "error", delErr)
		}
		return nil, fmt.Errorf("insert messages: %w", err)
	}
	return toMessages(docRefs), nil
}

func toMessages(docs []*messageDoc) []store.Message {
	messages := make([]store.Message, len(docs))
	for i, d := range docs {
		messages[i] = docToMessage(d)
	}
	return messages
}

// isTransactionNotSupported checks if the error indicates transactions aren't supported.
func isTransactionNotSupported(err error) bool {
	// 263 OperationNotSupportedInTransaction, 20 IllegalOperation (standalone).
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 263 || cmdErr.Code == 20
	}
	return false
}

// UpdateFlags applies a partial flag update with one owner-scoped UpdateOne.
func (s *Store) UpdateFlags(ctx context.Context, ownerID, id string, update store.FlagUpdate) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{"_id": oid, "owner_id": ownerID}

	if update.IsEmpty() {
		n, err := s.collection.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("count message: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Read != nil {
		set["is_read"] = *update.Read
	}
	if update.Archived != nil {
		set["is_archived"] = *update.Archived
	}

	result, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update flags: %w", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
