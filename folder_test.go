package webmail

import (
	"errors"
	"testing"
)

func TestParseFolder(t *testing.T) {
	tests := []struct {
		name    string
		want    Folder
		wantErr bool
	}{
		{"inbox", FolderInbox, false},
		{"sent", FolderSent, false},
		{"archive", FolderArchive, false},
		{"", "", true},
		{"Inbox", "", true},
		{"archived", "", true},
		{" inbox", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFolder(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFolder) {
					t.Errorf("expected ErrInvalidFolder, got %v", err)
				}
				if IsFolder(tt.name) {
					t.Error("IsFolder = true")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFolder(%q) = %q, %v", tt.name, got, err)
			}
		})
	}
}

func TestFolderFilters(t *testing.T) {
	tests := []struct {
		folder Folder
		keys   []string
	}{
		{FolderInbox, []string{"owner_id", "is_archived", "recipient_ids"}},
		{FolderSent, []string{"owner_id", "sender_id"}},
		{FolderArchive, []string{"owner_id", "is_archived", "recipient_ids"}},
	}
	for _, tt := range tests {
		t.Run(tt.folder.String(), func(t *testing.T) {
			filters := tt.folder.filters("u@example.com")
			if len(filters) != len(tt.keys) {
				t.Fatalf("got %d filters, want %d", len(filters), len(tt.keys))
			}
			for i, f := range filters {
				if f.Key() != tt.keys[i] {
					t.Errorf("filter %d key = %q, want %q", i, f.Key(), tt.keys[i])
				}
			}
		})
	}

	if got := FolderArchive.filters("u")[1].Value(); got != true {
		t.Errorf("archive is_archived value = %v", got)
	}
	if got := Folder("junk").filters("u"); got != nil {
		t.Errorf("unknown folder filters = %v", got)
	}
}
