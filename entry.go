package webmail

import (
	"time"

	"github.com/rbaliyan/webmail/store"
)

// TimestampLayout is the display format of an entry's timestamp.
const TimestampLayout = "Jan 02 2006, 03:04 PM"

// Entry is one user's copy of a composed message.
type Entry struct {
	ID         string
	Owner      string
	Sender     string
	Recipients []string
	Subject    string
	Body       string
	Timestamp  time.Time
	Read       bool
	Archived   bool
	UpdatedAt  time.Time
}

func newEntry(m store.Message) Entry {
	return Entry{
		ID:         m.GetID(),
		Owner:      m.GetOwnerID(),
		Sender:     m.GetSenderID(),
		Recipients: append([]string(nil), m.GetRecipientIDs()...),
		Subject:    m.GetSubject(),
		Body:       m.GetBody(),
		Timestamp:  m.GetCreatedAt(),
		Read:       m.GetIsRead(),
		Archived:   m.GetIsArchived(),
		UpdatedAt:  m.GetUpdatedAt(),
	}
}

func newEntries(msgs []store.Message) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = newEntry(m)
	}
	return out
}

// EntryView is the serialized form of an entry.
type EntryView struct {
	ID         string   `json:"id"`
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Timestamp  string   `json:"timestamp"`
	Read       bool     `json:"read"`
	Archived   bool     `json:"archived"`
}

// View returns the serialized form. The owner is implied by the caller and
// is not included.
func (e Entry) View() EntryView {
	recipients := e.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return EntryView{
		ID:         e.ID,
		Sender:     e.Sender,
		Recipients: recipients,
		Subject:    e.Subject,
		Body:       e.Body,
		Timestamp:  e.Timestamp.UTC().Format(TimestampLayout),
		Read:       e.Read,
		Archived:   e.Archived,
	}
}

// EntryList is one page of a folder listing.
type EntryList struct {
	Entries []Entry
	Total   int64
	HasMore bool
}

// Views serializes every entry in the page.
func (l *EntryList) Views() []EntryView {
	out := make([]EntryView, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.View()
	}
	return out
}
