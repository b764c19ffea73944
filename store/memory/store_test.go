package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbaliyan/webmail/store"
)

func newConnected(t *testing.T) *Store {
	t.Helper()
	s := New()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func ptr(b bool) *bool { return &b }

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, "x"); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Connect(ctx); !errors.Is(err, store.ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestCreateMessages(t *testing.T) {
	ctx := context.Background()
	s := newConnected(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty batch", func(t *testing.T) {
		if _, err := s.CreateMessages(ctx, nil); !errors.Is(err, store.ErrEmptyBatch) {
			t.Errorf("expected ErrEmptyBatch, got %v", err)
		}
	})

	t.Run("preserves data", func(t *testing.T) {
		msgs, err := s.CreateMessages(ctx, []store.MessageData{
			{OwnerID: "a@x", SenderID: "a@x", RecipientIDs: []string{"b@x"}, Subject: "s", Body: "b", IsRead: true, CreatedAt: now},
			{OwnerID: "b@x", SenderID: "a@x", RecipientIDs: []string{"b@x"}, Subject: "s", Body: "b", CreatedAt: now},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(msgs))
		}
		if msgs[0].GetID() == msgs[1].GetID() {
			t.Error("expected distinct IDs")
		}
		if !msgs[0].GetIsRead() || msgs[1].GetIsRead() {
			t.Error("read flags not preserved")
		}
		for _, m := range msgs {
			if !m.GetCreatedAt().Equal(now) {
				t.Errorf("expected created_at %v, got %v", now, m.GetCreatedAt())
			}
			if m.GetIsArchived() {
				t.Error("new entries must not be archived")
			}
		}
	})
}

func TestFindOrdering(t *testing.T) {
	ctx := context.Background()
	s := newConnected(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	data := []store.MessageData{
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "old", CreatedAt: base},
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "tie-1", CreatedAt: base.Add(time.Minute)},
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "tie-2", CreatedAt: base.Add(time.Minute)},
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "new", CreatedAt: base.Add(time.Hour)},
	}
	if _, err := s.CreateMessages(ctx, data); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.Find(ctx, []store.Filter{store.OwnerIs("u")}, store.ListOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := []string{"new", "tie-1", "tie-2", "old"}
	if len(list.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(list.Messages))
	}
	for i, w := range want {
		if got := list.Messages[i].GetSubject(); got != w {
			t.Errorf("position %d: expected %q, got %q", i, w, got)
		}
	}

	t.Run("pagination", func(t *testing.T) {
		page, err := s.Find(ctx, []store.Filter{store.OwnerIs("u")}, store.ListOptions{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(page.Messages) != 2 || page.Total != 4 || !page.HasMore {
			t.Fatalf("unexpected page: len=%d total=%d hasMore=%v", len(page.Messages), page.Total, page.HasMore)
		}
		if page.Messages[0].GetSubject() != "tie-1" {
			t.Errorf("expected tie-1, got %q", page.Messages[0].GetSubject())
		}
	})
}

func TestFilters(t *testing.T) {
	ctx := context.Background()
	s := newConnected(t)
	now := time.Now().UTC()

	msgs, err := s.CreateMessages(ctx, []store.MessageData{
		{OwnerID: "a", SenderID: "a", RecipientIDs: []string{"b", "c"}, IsRead: true, CreatedAt: now},
		{OwnerID: "b", SenderID: "a", RecipientIDs: []string{"b"}, CreatedAt: now},
		{OwnerID: "c", SenderID: "a", RecipientIDs: []string{"c"}, CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateFlags(ctx, "b", msgs[1].GetID(), store.FlagUpdate{Archived: ptr(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	tests := []struct {
		name    string
		filters []store.Filter
		want    int64
	}{
		{"owner", []store.Filter{store.OwnerIs("a")}, 1},
		{"sender", []store.Filter{store.SenderIs("a")}, 3},
		{"recipient contains", []store.Filter{store.RecipientIs("c")}, 2},
		{"archived", []store.Filter{store.IsArchivedFilter(true)}, 1},
		{"unread", []store.Filter{store.IsReadFilter(false)}, 2},
		{"owner and recipient", []store.Filter{store.OwnerIs("a"), store.RecipientIs("a")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.filters)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != tt.want {
				t.Errorf("expected %d, got %d", tt.want, n)
			}
		})
	}

	t.Run("invalid filter", func(t *testing.T) {
		filters := []store.Filter{store.OwnerIs("a"), {}}
		if _, err := s.Count(ctx, filters); !errors.Is(err, store.ErrFilterInvalid) {
			t.Errorf("Count: expected ErrFilterInvalid, got %v", err)
		}
		if _, err := s.Find(ctx, filters, store.ListOptions{}); !errors.Is(err, store.ErrFilterInvalid) {
			t.Errorf("Find: expected ErrFilterInvalid, got %v", err)
		}
	})
}

func TestUpdateFlags(t *testing.T) {
	ctx := context.Background()
	s := newConnected(t)

	msgs, err := s.CreateMessages(ctx, []store.MessageData{
		{OwnerID: "owner", SenderID: "x", RecipientIDs: []string{"owner"}, CreatedAt: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := msgs[0].GetID()

	t.Run("partial update keeps other flag", func(t *testing.T) {
		if err := s.UpdateFlags(ctx, "owner", id, store.FlagUpdate{Read: ptr(true)}); err != nil {
			t.Fatalf("update: %v", err)
		}
		if err := s.UpdateFlags(ctx, "owner", id, store.FlagUpdate{Archived: ptr(true)}); err != nil {
			t.Fatalf("update: %v", err)
		}
		m, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !m.GetIsRead() || !m.GetIsArchived() {
			t.Errorf("expected read and archived, got read=%v archived=%v", m.GetIsRead(), m.GetIsArchived())
		}
	})

	t.Run("other owner gets not found", func(t *testing.T) {
		err := s.UpdateFlags(ctx, "intruder", id, store.FlagUpdate{Read: ptr(false)})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		err := s.UpdateFlags(ctx, "owner", "7b0e4c52-4f8a-4a8e-9d57-0c7a3b9f1e21", store.FlagUpdate{})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		err := s.UpdateFlags(ctx, "owner", "inbox", store.FlagUpdate{Read: ptr(true)})
		if !errors.Is(err, store.ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
		if _, err := s.Get(ctx, "bogus"); !errors.Is(err, store.ErrInvalidID) {
			t.Errorf("Get: expected ErrInvalidID, got %v", err)
		}
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newConnected(t)

	u, err := s.CreateUser(ctx, store.UserData{Email: "ann@example.com", PasswordHash: []byte("h")})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be assigned")
	}

	if _, err := s.CreateUser(ctx, store.UserData{Email: "ann@example.com"}); !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if string(got.PasswordHash) != "h" {
		t.Errorf("expected password hash to round-trip")
	}

	if _, err := s.GetUserByEmail(ctx, "ANN@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected exact-match lookup, got %v", err)
	}
}
