package webmail

import "github.com/rbaliyan/webmail/store"

var (
	ptrTrue  = ptr(true)
	ptrFalse = ptr(false)
)

func ptr(b bool) *bool { return &b }

// Flags is a partial update of an entry's per-owner state.
// A nil field is left unchanged.
type Flags struct {
	Read     *bool // nil = no change, true = mark read, false = mark unread
	Archived *bool // nil = no change, true = archive, false = unarchive
}

// Pre-allocated flag values for common operations.
var (
	FlagsMarkRead       = Flags{Read: ptrTrue}
	FlagsMarkUnread     = Flags{Read: ptrFalse}
	FlagsMarkArchived   = Flags{Archived: ptrTrue}
	FlagsMarkUnarchived = Flags{Archived: ptrFalse}
)

// WithRead returns flags with read status set.
func (f Flags) WithRead(read bool) Flags {
	if read {
		f.Read = ptrTrue
	} else {
		f.Read = ptrFalse
	}
	return f
}

// WithArchived returns flags with archived status set.
func (f Flags) WithArchived(archived bool) Flags {
	if archived {
		f.Archived = ptrTrue
	} else {
		f.Archived = ptrFalse
	}
	return f
}

// IsEmpty reports whether the flags change nothing.
func (f Flags) IsEmpty() bool {
	return f.Read == nil && f.Archived == nil
}

func (f Flags) toStore() store.FlagUpdate {
	return store.FlagUpdate{Read: f.Read, Archived: f.Archived}
}
