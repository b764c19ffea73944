// Package store provides interfaces and types for webmail storage.
// Implementations are in store/memory, store/sqlite, store/postgres, and
// store/mongo subpackages.
//
// # Atomic Fan-Out Without Locks
//
// A single compose produces one entry per mailbox involved: the sender's copy
// plus one copy per recipient. Those entries must become visible together or
// not at all. Backends achieve this with database-native transactions rather
// than external coordination:
//
//   - PostgreSQL and SQLite: one sqlx transaction around all inserts.
//   - MongoDB: a session transaction around InsertMany. Standalone servers
//     without transactions fall back to a non-atomic ordered InsertMany.
//   - Memory: a store-wide write lock held while the batch is published.
//
// Flag updates are single owner-scoped statements, so concurrent updates to
// the same entry resolve as last write wins without read-modify-write races.
package store

import "context"

// Store is the storage interface for the webmail backend.
//
// All operations must be safe for concurrent use. Implementations must use
// database-level atomicity (transactions, atomic operations) rather than
// external locking mechanisms.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Mailbox entry operations
	MessageStore

	// Registered users
	UserStore
}

// MessageStoreReader provides read operations for mailbox entries.
type MessageStoreReader interface {
	// Get retrieves an entry by ID regardless of owner.
	// Returns ErrNotFound if the entry doesn't exist and ErrInvalidID if the
	// ID is not in the backend's format.
	Get(ctx context.Context, id string) (Message, error)

	// Find retrieves entries matching the filters, newest first. Entries
	// sharing a timestamp are returned in insertion order.
	Find(ctx context.Context, filters []Filter, opts ListOptions) (*MessageList, error)

	// Count returns the count of entries matching the filters.
	Count(ctx context.Context, filters []Filter) (int64, error)
}

// MessageStoreMutator provides mutation operations for mailbox entries.
// Content is immutable; only the per-owner flags can change.
type MessageStoreMutator interface {
	// UpdateFlags applies a partial flag update to the entry with the given
	// ID owned by ownerID. Nil fields are left unchanged.
	// Returns ErrNotFound if no entry with that ID is owned by ownerID.
	UpdateFlags(ctx context.Context, ownerID, id string, update FlagUpdate) error
}

// MessageStoreCreator provides entry creation operations.
type MessageStoreCreator interface {
	// CreateMessages creates multiple entries atomically in a single transaction.
	//
	// This operation MUST be atomic - either all entries are created or none are.
	// Entries are assigned IDs and insertion order in slice order.
	//
	// Returns:
	//   - (messages, nil): All entries created successfully
	//   - (nil, error): Operation failed, no entries were created
	CreateMessages(ctx context.Context, data []MessageData) ([]Message, error)
}

// MessageStore provides operations for mailbox entries.
type MessageStore interface {
	MessageStoreReader
	MessageStoreMutator
	MessageStoreCreator
}

// UserStore provides operations for registered users.
type UserStore interface {
	// CreateUser persists a new user. The store assigns ID and CreatedAt.
	// Returns ErrDuplicateEntry if the email is already registered.
	CreateUser(ctx context.Context, data UserData) (*User, error)

	// GetUserByEmail looks a user up by exact email match.
	// Returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// FindWithCounter is an optional interface that Store implementations can
// implement to return entries and total count in a single query.
// When implemented, list operations avoid a separate Count round-trip.
type FindWithCounter interface {
	FindWithCount(ctx context.Context, filters []Filter, opts ListOptions) (*MessageList, int64, error)
}
