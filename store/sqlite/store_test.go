package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbaliyan/webmail/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func ptr(b bool) *bool { return &b }

func TestConnect(t *testing.T) {
	s := newTestStore(t)
	if err := s.Connect(context.Background()); !errors.Is(err, store.ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	msgs, err := s.CreateMessages(ctx, []store.MessageData{
		{OwnerID: "a@x", SenderID: "a@x", RecipientIDs: []string{"b@x", "c@x"}, Subject: "hi", Body: "there", IsRead: true, CreatedAt: now},
		{OwnerID: "b@x", SenderID: "a@x", RecipientIDs: []string{"b@x"}, Subject: "hi", Body: "there", CreatedAt: now},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, msgs[0].GetID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GetSubject() != "hi" || got.GetBody() != "there" {
		t.Errorf("unexpected content %q/%q", got.GetSubject(), got.GetBody())
	}
	if !got.GetIsRead() || got.GetIsArchived() {
		t.Errorf("unexpected flags read=%v archived=%v", got.GetIsRead(), got.GetIsArchived())
	}
	if !got.GetCreatedAt().Equal(now) {
		t.Errorf("expected %v, got %v", now, got.GetCreatedAt())
	}
	recips := got.GetRecipientIDs()
	if len(recips) != 2 || recips[0] != "b@x" || recips[1] != "c@x" {
		t.Errorf("unexpected recipients %v", recips)
	}

	if _, err := s.Get(ctx, "7b0e4c52-4f8a-4a8e-9d57-0c7a3b9f1e21"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "bogus"); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	_, err := s.CreateMessages(ctx, []store.MessageData{
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "old", CreatedAt: base},
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "tie-1", CreatedAt: base.Add(time.Minute)},
		{OwnerID: "u", SenderID: "v", RecipientIDs: []string{"u"}, Subject: "tie-2", CreatedAt: base.Add(time.Minute)},
		{OwnerID: "u", SenderID: "u", RecipientIDs: []string{"v"}, Subject: "sent", CreatedAt: base.Add(time.Hour), IsRead: true},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("ordering", func(t *testing.T) {
		list, err := s.Find(ctx, []store.Filter{store.OwnerIs("u")}, store.ListOptions{})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		want := []string{"sent", "tie-1", "tie-2", "old"}
		if len(list.Messages) != len(want) {
			t.Fatalf("expected %d, got %d", len(want), len(list.Messages))
		}
		for i, w := range want {
			if got := list.Messages[i].GetSubject(); got != w {
				t.Errorf("position %d: expected %q, got %q", i, w, got)
			}
		}
	})

	t.Run("recipient contains", func(t *testing.T) {
		list, err := s.Find(ctx, []store.Filter{store.OwnerIs("u"), store.RecipientIs("u"), store.IsArchivedFilter(false)}, store.ListOptions{})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if list.Total != 3 {
			t.Errorf("expected 3 inbox entries, got %d", list.Total)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := s.Find(ctx, []store.Filter{store.OwnerIs("u")}, store.ListOptions{Limit: 2})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(list.Messages) != 2 || !list.HasMore || list.Total != 4 {
			t.Errorf("unexpected page len=%d hasMore=%v total=%d", len(list.Messages), list.HasMore, list.Total)
		}
	})

	t.Run("find with count", func(t *testing.T) {
		list, total, err := s.FindWithCount(ctx, []store.Filter{store.OwnerIs("u"), store.SenderIs("v")}, store.ListOptions{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if total != 3 || list.Total != 3 {
			t.Errorf("expected total 3, got %d/%d", total, list.Total)
		}
		if len(list.Messages) != 1 || list.Messages[0].GetSubject() != "tie-2" || !list.HasMore {
			t.Errorf("unexpected page %d hasMore=%v", len(list.Messages), list.HasMore)
		}
	})

	t.Run("offset without limit", func(t *testing.T) {
		list, err := s.Find(ctx, []store.Filter{store.OwnerIs("u")}, store.ListOptions{Offset: 3})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(list.Messages) != 1 || list.Messages[0].GetSubject() != "old" || list.HasMore {
			t.Errorf("unexpected tail len=%d hasMore=%v", len(list.Messages), list.HasMore)
		}
	})

	t.Run("invalid filter fails instead of widening", func(t *testing.T) {
		filters := []store.Filter{store.OwnerIs("u"), {}}
		if _, err := s.Find(ctx, filters, store.ListOptions{}); !errors.Is(err, store.ErrFilterInvalid) {
			t.Errorf("Find: expected ErrFilterInvalid, got %v", err)
		}
		if _, err := s.Count(ctx, filters); !errors.Is(err, store.ErrFilterInvalid) {
			t.Errorf("Count: expected ErrFilterInvalid, got %v", err)
		}
	})

	t.Run("count unread", func(t *testing.T) {
		n, err := s.Count(ctx, []store.Filter{store.IsReadFilter(false)})
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 unread, got %d", n)
		}
	})
}

func TestUpdateFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	msgs, err := s.CreateMessages(ctx, []store.MessageData{
		{OwnerID: "owner", SenderID: "x", RecipientIDs: []string{"owner"}, CreatedAt: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := msgs[0].GetID()

	if err := s.UpdateFlags(ctx, "owner", id, store.FlagUpdate{Archived: ptr(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GetIsRead() || !got.GetIsArchived() {
		t.Errorf("expected only archived to change, got read=%v archived=%v", got.GetIsRead(), got.GetIsArchived())
	}

	if err := s.UpdateFlags(ctx, "owner", id, store.FlagUpdate{}); err != nil {
		t.Errorf("empty update on owned entry: %v", err)
	}
	if err := s.UpdateFlags(ctx, "intruder", id, store.FlagUpdate{Read: ptr(true)}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateUser(ctx, store.UserData{Email: "ann@example.com", PasswordHash: []byte("hash")}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, store.UserData{Email: "ann@example.com"}); !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
	u, err := s.GetUserByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if string(u.PasswordHash) != "hash" {
		t.Errorf("expected hash to round-trip, got %q", u.PasswordHash)
	}
	if _, err := s.GetUserByEmail(ctx, "bob@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
