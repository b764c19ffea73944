package webmail

import (
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Folder names a derived view over a user's entries.
// Folders are not stored; membership follows from owner, sender,
// recipients and the archived flag.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderArchive Folder = "archive"
)

// Folders lists every valid folder in display order.
var Folders = []Folder{FolderInbox, FolderSent, FolderArchive}

// ParseFolder validates a folder name. Names are case sensitive.
func ParseFolder(name string) (Folder, error) {
	switch f := Folder(name); f {
	case FolderInbox, FolderSent, FolderArchive:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, name)
	}
}

// IsFolder reports whether name is a valid folder name.
func IsFolder(name string) bool {
	_, err := ParseFolder(name)
	return err == nil
}

func (f Folder) String() string { return string(f) }

// filters returns the store filters selecting this folder for userID.
//
// An entry a user sent to themselves is in both inbox and sent; sent ignores
// the archived flag.
func (f Folder) filters(userID string) []store.Filter {
	switch f {
	case FolderInbox:
		return []store.Filter{
			store.OwnerIs(userID),
			store.IsArchivedFilter(false),
			store.RecipientIs(userID),
		}
	case FolderSent:
		return []store.Filter{
			store.OwnerIs(userID),
			store.SenderIs(userID),
		}
	case FolderArchive:
		return []store.Filter{
			store.OwnerIs(userID),
			store.IsArchivedFilter(true),
			store.RecipientIs(userID),
		}
	default:
		return nil
	}
}
