package memory

import (
	"sort"
	"time"

	"github.com/rbaliyan/webmail/store"
)

// matchesFilters expects filters that passed store.ValidateFilters.
func matchesFilters(m *message, filters []store.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(m, f) {
			return false
		}
	}
	return true
}

func matchesFilter(m *message, f store.Filter) bool {
	value := f.Value()

	switch f.Key() {
	case "recipient_ids":
		return containsString(m.recipientIDs, value)
	case "id":
		return equalValues(m.id, value)
	case "owner_id":
		return equalValues(m.ownerID, value)
	case "sender_id":
		return equalValues(m.senderID, value)
	case "subject":
		return equalValues(m.subject, value)
	case "body":
		return equalValues(m.body, value)
	case "is_read":
		return equalValues(m.isRead, value)
	case "is_archived":
		return equalValues(m.isArchived, value)
	case "created_at":
		return equalValues(m.createdAt, value)
	case "updated_at":
		return equalValues(m.updatedAt, value)
	default:
		return false
	}
}

func containsString(slice []string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// sortMessages orders newest first, then by insertion sequence.
func sortMessages(msgs []*message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].createdAt.Equal(msgs[j].createdAt) {
			return msgs[i].createdAt.After(msgs[j].createdAt)
		}
		return msgs[i].seq < msgs[j].seq
	})
}
