package store

import (
	"fmt"
)

// ListOptions configures entry listing. Ordering is fixed: newest first,
// insertion order among equal timestamps. A zero Limit returns every match.
type ListOptions struct {
	Limit  int
	Offset int
}

// Filter represents a query filter with a field key, comparison operator, and value.
type Filter struct {
	key      string
	value    any
	operator string
}

// Key returns the storage field key.
func (f Filter) Key() string { return f.key }

// Value returns the filter value.
func (f Filter) Value() any { return f.value }

// Operator returns the comparison operator, "eq" or "contains".
func (f Filter) Operator() string { return f.operator }

// Validate reports ErrFilterInvalid for a filter no backend can apply.
// "contains" is only defined on the recipient list and "eq" only on
// scalar fields. Backends call it before building a query so a bad filter
// fails the call instead of widening it.
func (f Filter) Validate() error {
	key, ok := MessageFieldKey(f.key)
	if !ok {
		return fmt.Errorf("%w: unsupported field: %q", ErrFilterInvalid, f.key)
	}
	switch {
	case f.operator == "contains" && key == "recipient_ids":
		return nil
	case f.operator == "eq" && key != "recipient_ids":
		return nil
	default:
		return fmt.Errorf("%w: operator %q not supported on %s", ErrFilterInvalid, f.operator, key)
	}
}

// ValidateFilters validates every filter in order.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FilterBuilder builds filters for a specific entry field.
// Use MessageFilter() to create one, then chain a comparison method:
//
//	filter, err := store.MessageFilter("OwnerID").Equal(userID)
type FilterBuilder struct {
	key string
	err error
}

// FilterError represents an error in filter building.
type FilterError struct {
	Key string
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Key, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (b *FilterBuilder) build(op string, v any) (Filter, error) {
	if b.err != nil {
		return Filter{}, &FilterError{Key: b.key, Err: b.err}
	}
	f := Filter{key: b.key, value: v, operator: op}
	if err := f.Validate(); err != nil {
		return Filter{}, &FilterError{Key: b.key, Err: err}
	}
	return f, nil
}

func (b *FilterBuilder) Equal(v any) (Filter, error)    { return b.build("eq", v) }
func (b *FilterBuilder) Contains(v any) (Filter, error) { return b.build("contains", v) }

// MessageFilter returns a filter builder for entry fields.
func MessageFilter(field string) *FilterBuilder {
	key, ok := MessageFieldKey(field)
	if !ok {
		return &FilterBuilder{key: field, err: fmt.Errorf("%w: unsupported field: %s", ErrFilterInvalid, field)}
	}
	return &FilterBuilder{key: key}
}

// MessageFieldKey maps field names to storage keys.
func MessageFieldKey(field string) (string, bool) {
	switch field {
	case "ID", "id":
		return "id", true
	case "OwnerID", "owner_id":
		return "owner_id", true
	case "SenderID", "sender_id":
		return "sender_id", true
	case "RecipientIDs", "recipient_ids":
		return "recipient_ids", true
	case "Subject", "subject":
		return "subject", true
	case "Body", "body":
		return "body", true
	case "IsRead", "is_read":
		return "is_read", true
	case "IsArchived", "is_archived":
		return "is_archived", true
	case "CreatedAt", "created_at":
		return "created_at", true
	case "UpdatedAt", "updated_at":
		return "updated_at", true
	default:
		return "", false
	}
}

// Convenience filter functions

// OwnerIs returns a filter for entries owned by a specific user.
func OwnerIs(ownerID string) Filter {
	f, _ := MessageFilter("OwnerID").Equal(ownerID)
	return f
}

// SenderIs returns a filter for entries authored by a specific user.
func SenderIs(senderID string) Filter {
	f, _ := MessageFilter("SenderID").Equal(senderID)
	return f
}

// RecipientIs returns a filter for entries whose recipient list contains a user.
func RecipientIs(recipientID string) Filter {
	f, _ := MessageFilter("RecipientIDs").Contains(recipientID)
	return f
}

// IsReadFilter returns a filter for read/unread entries.
func IsReadFilter(isRead bool) Filter {
	f, _ := MessageFilter("IsRead").Equal(isRead)
	return f
}

// IsArchivedFilter returns a filter for archived/unarchived entries.
func IsArchivedFilter(archived bool) Filter {
	f, _ := MessageFilter("IsArchived").Equal(archived)
	return f
}
