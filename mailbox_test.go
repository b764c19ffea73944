package webmail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rbaliyan/webmail/directory"
	"github.com/rbaliyan/webmail/store/memory"
	"golang.org/x/crypto/bcrypt"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	carol = "carol@example.com"
)

// setupTestService returns a connected service with alice, bob and carol
// registered.
func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	dir := directory.New(st, directory.WithBcryptCost(bcrypt.MinCost))
	svc, err := NewService(append([]Option{WithStore(st), WithDirectory(dir)}, opts...)...)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	for _, email := range []string{alice, bob, carol} {
		if _, err := dir.Register(ctx, directory.RegisterRequest{
			Email:        email,
			Password:     "secret",
			Confirmation: "secret",
		}); err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
	}
	return svc
}

func mustCompose(t *testing.T, mb Mailbox, recipients, subject string) *ComposeResult {
	t.Helper()
	res, err := mb.Compose(context.Background(), ComposeRequest{
		Recipients: recipients,
		Subject:    subject,
		Body:       "body of " + subject,
	})
	if err != nil {
		t.Fatalf("compose %q: %v", subject, err)
	}
	return res
}

func subjects(l *EntryList) []string {
	out := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = e.Subject
	}
	return out
}

func TestNewService(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewService(WithDirectory(directory.New(memory.New())))
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("requires directory", func(t *testing.T) {
		_, err := NewService(WithStore(memory.New()))
		if !errors.Is(err, ErrDirectoryRequired) {
			t.Errorf("expected ErrDirectoryRequired, got %v", err)
		}
	})

	t.Run("creates service", func(t *testing.T) {
		st := memory.New()
		svc, err := NewService(WithStore(st), WithDirectory(directory.New(st)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.IsConnected() {
			t.Error("new service should not be connected")
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc, err := NewService(WithStore(st), WithDirectory(directory.New(st)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Client(alice).Inbox(ctx, ListOptions{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before connect, got %v", err)
	}

	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !svc.IsConnected() {
		t.Error("expected connected")
	}
	if svc.Events() == nil {
		t.Error("expected events after connect")
	}
	if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Errorf("second close should not error, got %v", err)
	}
	if _, err := svc.Client(alice).Sent(ctx, ListOptions{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}

func TestClientUserID(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	if got := svc.Client(alice).UserID(); got != alice {
		t.Errorf("UserID() = %q, want %q", got, alice)
	}

	for _, id := range []string{"", "a b@example.com", "a:b", "a/b", "a*", "a\x00b"} {
		_, err := svc.Client(id).Inbox(ctx, ListOptions{})
		if !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("Client(%q): expected ErrInvalidUserID, got %v", id, err)
		}
	}
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out one copy per mailbox", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob+", "+carol, "Hello")

		if res.Sent.Owner != alice || res.Sent.Sender != alice || !res.Sent.Read {
			t.Errorf("unexpected sender copy: %+v", res.Sent)
		}
		if strings.Join(res.Sent.Recipients, ",") != bob+","+carol {
			t.Errorf("sender copy recipients = %v", res.Sent.Recipients)
		}
		if len(res.Delivered) != 2 {
			t.Fatalf("expected 2 delivered copies, got %d", len(res.Delivered))
		}
		for i, want := range []string{bob, carol} {
			d := res.Delivered[i]
			if d.Owner != want || d.Sender != alice || d.Read || d.Archived {
				t.Errorf("delivered[%d] = %+v", i, d)
			}
			if len(d.Recipients) != 1 || d.Recipients[0] != want {
				t.Errorf("delivered[%d] recipients = %v", i, d.Recipients)
			}
			if d.Subject != "Hello" || d.Body != "body of Hello" {
				t.Errorf("delivered[%d] content mismatch", i)
			}
		}
		for _, e := range res.Entries() {
			if !e.Timestamp.Equal(res.Sent.Timestamp) {
				t.Errorf("entry %s timestamp %v differs from %v", e.ID, e.Timestamp, res.Sent.Timestamp)
			}
		}
	})

	t.Run("duplicate recipients get one copy per occurrence", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob+","+bob, "Twice")

		if len(res.Sent.Recipients) != 1 || res.Sent.Recipients[0] != bob {
			t.Errorf("sender copy recipients = %v, want [%s]", res.Sent.Recipients, bob)
		}
		if len(res.Delivered) != 2 {
			t.Fatalf("expected 2 delivered copies, got %d", len(res.Delivered))
		}
		inbox, err := svc.Client(bob).Inbox(ctx, ListOptions{})
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if inbox.Total != 2 {
			t.Errorf("bob inbox total = %d, want 2", inbox.Total)
		}
	})

	t.Run("self send lands in inbox and sent", func(t *testing.T) {
		svc := setupTestService(t)
		mb := svc.Client(alice)
		mustCompose(t, mb, alice, "Note to self")

		inbox, _ := mb.Inbox(ctx, ListOptions{})
		sent, _ := mb.Sent(ctx, ListOptions{})
		// both copies are owned and authored by alice, and both list her
		// as a recipient
		if inbox.Total != 2 {
			t.Errorf("inbox total = %d, want 2", inbox.Total)
		}
		if sent.Total != 2 {
			t.Errorf("sent total = %d, want 2", sent.Total)
		}
	})

	t.Run("resolution errors store nothing", func(t *testing.T) {
		svc := setupTestService(t)
		mb := svc.Client(alice)

		tests := []struct {
			name       string
			recipients string
			wantErr    error
			address    string
		}{
			{"empty", "", ErrNoRecipients, ""},
			{"whitespace", "   ", ErrNoRecipients, ""},
			{"unknown", "nobody@example.com", ErrUnknownRecipient, "nobody@example.com"},
			{"unknown after known", bob + ", ghost@example.com", ErrUnknownRecipient, "ghost@example.com"},
			{"trailing comma", bob + ",", ErrUnknownRecipient, ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := mb.Compose(ctx, ComposeRequest{Recipients: tt.recipients, Subject: "x"})
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var ur *UnknownRecipientError
				if errors.As(err, &ur) && ur.Address != tt.address {
					t.Errorf("address = %q, want %q", ur.Address, tt.address)
				}
			})
		}

		sent, _ := mb.Sent(ctx, ListOptions{})
		inbox, _ := svc.Client(bob).Inbox(ctx, ListOptions{})
		if sent.Total != 0 || inbox.Total != 0 {
			t.Errorf("expected nothing stored, sent=%d inbox=%d", sent.Total, inbox.Total)
		}
	})

	t.Run("no recipients matches directory sentinel", func(t *testing.T) {
		svc := setupTestService(t)
		_, err := svc.Client(alice).Compose(ctx, ComposeRequest{})
		if !errors.Is(err, directory.ErrNoRecipients) {
			t.Errorf("expected directory.ErrNoRecipients, got %v", err)
		}
	})

	t.Run("empty subject and body are allowed", func(t *testing.T) {
		svc := setupTestService(t)
		if _, err := svc.Client(alice).Compose(ctx, ComposeRequest{Recipients: bob}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("limits", func(t *testing.T) {
		svc := setupTestService(t, WithMaxRecipients(2), WithMaxSubjectLength(5), WithMaxBodySize(8))
		mb := svc.Client(alice)

		tests := []struct {
			name    string
			req     ComposeRequest
			wantErr error
		}{
			{"too many recipients", ComposeRequest{Recipients: bob + "," + carol + "," + bob}, ErrTooManyRecipients},
			{"subject too long", ComposeRequest{Recipients: bob, Subject: "toolong"}, ErrSubjectTooLong},
			{"body too large", ComposeRequest{Recipients: bob, Body: "123456789"}, ErrBodyTooLarge},
			{"invalid utf8", ComposeRequest{Recipients: bob, Body: "\xff"}, ErrInvalidContent},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := mb.Compose(ctx, tt.req)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, ErrInvalidMessage) {
					t.Errorf("expected ErrInvalidMessage, got %v", err)
				}
			})
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("folders", func(t *testing.T) {
		svc := setupTestService(t)
		mustCompose(t, svc.Client(alice), bob, "one")
		mustCompose(t, svc.Client(carol), bob, "two")
		mustCompose(t, svc.Client(bob), alice, "three")

		bobMB := svc.Client(bob)
		inbox, err := bobMB.List(ctx, "inbox", ListOptions{})
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if inbox.Total != 2 {
			t.Errorf("bob inbox total = %d, want 2", inbox.Total)
		}
		for _, e := range inbox.Entries {
			if e.Owner != bob || e.Archived {
				t.Errorf("unexpected inbox entry %+v", e)
			}
		}

		sent, err := bobMB.List(ctx, "sent", ListOptions{})
		if err != nil {
			t.Fatalf("sent: %v", err)
		}
		if sent.Total != 1 || sent.Entries[0].Subject != "three" {
			t.Errorf("bob sent = %v", subjects(sent))
		}

		archive, err := bobMB.List(ctx, "archive", ListOptions{})
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		if archive.Total != 0 {
			t.Errorf("archive total = %d, want 0", archive.Total)
		}
	})

	t.Run("invalid folder", func(t *testing.T) {
		svc := setupTestService(t)
		for _, name := range []string{"", "trash", "Inbox", "drafts"} {
			if _, err := svc.Client(alice).List(ctx, name, ListOptions{}); !errors.Is(err, ErrInvalidFolder) {
				t.Errorf("List(%q): expected ErrInvalidFolder, got %v", name, err)
			}
		}
	})

	t.Run("newest first", func(t *testing.T) {
		base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		var tick int
		clock := func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}
		svc := setupTestService(t, WithClock(clock))
		for _, s := range []string{"a", "b", "c"} {
			mustCompose(t, svc.Client(alice), bob, s)
		}
		inbox, _ := svc.Client(bob).Inbox(ctx, ListOptions{})
		if got := strings.Join(subjects(inbox), ""); got != "cba" {
			t.Errorf("order = %q, want cba", got)
		}
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		svc := setupTestService(t, WithClock(func() time.Time { return fixed }))
		for _, s := range []string{"a", "b", "c"} {
			mustCompose(t, svc.Client(alice), bob, s)
		}
		inbox, _ := svc.Client(bob).Inbox(ctx, ListOptions{})
		if got := strings.Join(subjects(inbox), ""); got != "abc" {
			t.Errorf("order = %q, want abc", got)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		svc := setupTestService(t, WithMaxQueryLimit(3))
		for i := 0; i < 5; i++ {
			mustCompose(t, svc.Client(alice), bob, "m")
		}
		mb := svc.Client(bob)

		page, err := mb.Inbox(ctx, ListOptions{Limit: 10})
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if len(page.Entries) != 3 || !page.HasMore || page.Total != 5 {
			t.Errorf("capped page: len=%d hasMore=%v total=%d", len(page.Entries), page.HasMore, page.Total)
		}

		page, err = mb.Inbox(ctx, ListOptions{Limit: 3, Offset: 3})
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if len(page.Entries) != 2 || page.HasMore {
			t.Errorf("last page: len=%d hasMore=%v", len(page.Entries), page.HasMore)
		}
	})

	t.Run("zero limit lists everything", func(t *testing.T) {
		svc := setupTestService(t, WithMaxQueryLimit(50))
		const n = 120
		for i := 0; i < n; i++ {
			mustCompose(t, svc.Client(alice), bob, "m")
		}

		sent, err := svc.Client(alice).List(ctx, "sent", ListOptions{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(sent.Entries) != n || sent.Total != n || sent.HasMore {
			t.Errorf("sent: len=%d total=%d hasMore=%v, want all %d", len(sent.Entries), sent.Total, sent.HasMore, n)
		}

		inbox, err := svc.Client(bob).Inbox(ctx, ListOptions{Offset: 100})
		if err != nil {
			t.Fatalf("inbox: %v", err)
		}
		if len(inbox.Entries) != n-100 || inbox.HasMore {
			t.Errorf("inbox tail: len=%d hasMore=%v", len(inbox.Entries), inbox.HasMore)
		}
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	res := mustCompose(t, svc.Client(alice), bob, "Secret")

	t.Run("own entry", func(t *testing.T) {
		e, err := svc.Client(bob).Get(ctx, res.Delivered[0].ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if e.Owner != bob || e.Subject != "Secret" {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("foreign entry is not found", func(t *testing.T) {
		_, err := svc.Client(carol).Get(ctx, res.Delivered[0].ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		_, err = svc.Client(alice).Get(ctx, res.Delivered[0].ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("sender reading recipient copy: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := svc.Client(bob).Get(ctx, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, ErrNotFound) || !IsNotFound(err) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := svc.Client(bob).Get(ctx, "")
		if !errors.Is(err, ErrInvalidID) || !IsNotFound(err) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob, "Hi")
		mb := svc.Client(bob)
		id := res.Delivered[0].ID

		if err := mb.Update(ctx, id, FlagsMarkRead); err != nil {
			t.Fatalf("update: %v", err)
		}
		e, _ := mb.Get(ctx, id)
		if !e.Read || e.Archived {
			t.Errorf("after mark read: %+v", e)
		}

		if err := mb.Update(ctx, id, FlagsMarkUnread); err != nil {
			t.Fatalf("update: %v", err)
		}
		e, _ = mb.Get(ctx, id)
		if e.Read {
			t.Error("expected unread")
		}
	})

	t.Run("archive moves between inbox and archive", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob, "Hi")
		mb := svc.Client(bob)
		id := res.Delivered[0].ID

		if err := mb.Update(ctx, id, Flags{}.WithArchived(true)); err != nil {
			t.Fatalf("archive: %v", err)
		}
		inbox, _ := mb.Inbox(ctx, ListOptions{})
		archive, _ := mb.Archive(ctx, ListOptions{})
		if inbox.Total != 0 || archive.Total != 1 {
			t.Errorf("after archive: inbox=%d archive=%d", inbox.Total, archive.Total)
		}

		if err := mb.Update(ctx, id, FlagsMarkUnarchived); err != nil {
			t.Fatalf("unarchive: %v", err)
		}
		inbox, _ = mb.Inbox(ctx, ListOptions{})
		archive, _ = mb.Archive(ctx, ListOptions{})
		if inbox.Total != 1 || archive.Total != 0 {
			t.Errorf("after unarchive: inbox=%d archive=%d", inbox.Total, archive.Total)
		}
	})

	t.Run("archived sent copy stays in sent", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob, "Hi")
		mb := svc.Client(alice)

		if err := mb.Update(ctx, res.Sent.ID, FlagsMarkArchived); err != nil {
			t.Fatalf("archive: %v", err)
		}
		sent, _ := mb.Sent(ctx, ListOptions{})
		archive, _ := mb.Archive(ctx, ListOptions{})
		if sent.Total != 1 || archive.Total != 0 {
			t.Errorf("sent=%d archive=%d", sent.Total, archive.Total)
		}
	})

	t.Run("only the owner's copy changes", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob+","+carol, "Hi")

		if err := svc.Client(bob).Update(ctx, res.Delivered[0].ID, FlagsMarkRead); err != nil {
			t.Fatalf("update: %v", err)
		}
		e, _ := svc.Client(carol).Get(ctx, res.Delivered[1].ID)
		if e.Read {
			t.Error("carol's copy should still be unread")
		}
	})

	t.Run("foreign or missing entry", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob, "Hi")

		tests := []struct {
			name  string
			user  string
			id    string
			flags Flags
		}{
			{"foreign with flags", carol, res.Delivered[0].ID, FlagsMarkRead},
			{"foreign with empty flags", carol, res.Delivered[0].ID, Flags{}},
			{"missing", bob, "00000000-0000-0000-0000-000000000000", FlagsMarkRead},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := svc.Client(tt.user).Update(ctx, tt.id, tt.flags)
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			})
		}

		e, _ := svc.Client(bob).Get(ctx, res.Delivered[0].ID)
		if e.Read {
			t.Error("foreign update must not change the entry")
		}
	})

	t.Run("empty flags on own entry", func(t *testing.T) {
		svc := setupTestService(t)
		res := mustCompose(t, svc.Client(alice), bob, "Hi")
		if err := svc.Client(bob).Update(ctx, res.Delivered[0].ID, Flags{}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

type stubExporter struct {
	owner   string
	folder  Folder
	entries []Entry
	err     error
}

func (s *stubExporter) Export(_ context.Context, owner string, folder Folder, entries []Entry) (string, error) {
	s.owner, s.folder, s.entries = owner, folder, entries
	if s.err != nil {
		return "", s.err
	}
	return "mem://" + owner + "/" + folder.String(), nil
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		svc := setupTestService(t)
		_, err := svc.Client(alice).Export(ctx, "inbox")
		if !errors.Is(err, ErrExportNotConfigured) {
			t.Errorf("expected ErrExportNotConfigured, got %v", err)
		}
	})

	t.Run("pages through the whole folder", func(t *testing.T) {
		exp := &stubExporter{}
		svc := setupTestService(t, WithExporter(exp), WithMaxQueryLimit(2))
		for i := 0; i < 5; i++ {
			mustCompose(t, svc.Client(alice), bob, "m")
		}

		res, err := svc.Client(bob).Export(ctx, "inbox")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if res.Count != 5 || len(exp.entries) != 5 {
			t.Errorf("count = %d, exported = %d, want 5", res.Count, len(exp.entries))
		}
		if exp.owner != bob || exp.folder != FolderInbox {
			t.Errorf("exporter got owner=%q folder=%q", exp.owner, exp.folder)
		}
		if res.URI != "mem://"+bob+"/inbox" {
			t.Errorf("uri = %q", res.URI)
		}
	})

	t.Run("invalid folder", func(t *testing.T) {
		svc := setupTestService(t, WithExporter(&stubExporter{}))
		if _, err := svc.Client(bob).Export(ctx, "junk"); !errors.Is(err, ErrInvalidFolder) {
			t.Errorf("expected ErrInvalidFolder, got %v", err)
		}
	})

	t.Run("exporter failure", func(t *testing.T) {
		boom := errors.New("bucket gone")
		svc := setupTestService(t, WithExporter(&stubExporter{err: boom}))
		if _, err := svc.Client(bob).Export(ctx, "sent"); !errors.Is(err, boom) {
			t.Errorf("expected wrapped exporter error, got %v", err)
		}
	})
}

type vetoPlugin struct {
	inits, closes int
	before        []ComposeHookRequest
	after         int
	veto          error
}

func (p *vetoPlugin) Name() string                { return "veto" }
func (p *vetoPlugin) Init(context.Context) error  { p.inits++; return nil }
func (p *vetoPlugin) Close(context.Context) error { p.closes++; return nil }

func (p *vetoPlugin) BeforeCompose(_ context.Context, req ComposeHookRequest) error {
	p.before = append(p.before, req)
	return p.veto
}

func (p *vetoPlugin) AfterCompose(context.Context, *ComposeResult) error {
	p.after++
	return nil
}

func TestComposeHook(t *testing.T) {
	ctx := context.Background()

	t.Run("sees resolved recipients", func(t *testing.T) {
		p := &vetoPlugin{}
		svc := setupTestService(t, WithPlugin(p))
		mustCompose(t, svc.Client(alice), " "+bob+" ,"+carol, "Hi")

		if p.inits != 1 {
			t.Errorf("inits = %d, want 1", p.inits)
		}
		if len(p.before) != 1 || p.after != 1 {
			t.Fatalf("before=%d after=%d", len(p.before), p.after)
		}
		if got := strings.Join(p.before[0].Recipients, ","); got != bob+","+carol {
			t.Errorf("recipients = %q", got)
		}
	})

	t.Run("veto aborts compose", func(t *testing.T) {
		veto := errors.New("spam")
		p := &vetoPlugin{veto: veto}
		svc := setupTestService(t, WithPlugin(p))

		_, err := svc.Client(alice).Compose(ctx, ComposeRequest{Recipients: bob, Subject: "buy now"})
		var perr *PluginError
		if !errors.As(err, &perr) || perr.Op != "BeforeCompose" || !errors.Is(err, veto) {
			t.Fatalf("expected BeforeCompose PluginError, got %v", err)
		}
		if p.after != 0 {
			t.Error("AfterCompose should not run after a veto")
		}
		inbox, _ := svc.Client(bob).Inbox(ctx, ListOptions{})
		if inbox.Total != 0 {
			t.Errorf("vetoed compose stored %d entries", inbox.Total)
		}
	})

	t.Run("closed on service close", func(t *testing.T) {
		p := &vetoPlugin{}
		svc := setupTestService(t, WithPlugin(p))
		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}
		if p.closes != 1 {
			t.Errorf("closes = %d, want 1", p.closes)
		}
	})
}

func TestEntryView(t *testing.T) {
	e := Entry{
		ID:         "42",
		Owner:      bob,
		Sender:     alice,
		Recipients: []string{bob},
		Subject:    "Hi",
		Body:       "there",
		Timestamp:  time.Date(2024, 1, 5, 15, 4, 0, 0, time.FixedZone("X", 2*3600)),
		Read:       true,
	}
	v := e.View()
	if v.Timestamp != "Jan 05 2024, 01:04 PM" {
		t.Errorf("timestamp = %q", v.Timestamp)
	}
	if v.ID != "42" || v.Sender != alice || !v.Read || v.Archived {
		t.Errorf("unexpected view %+v", v)
	}

	if got := (Entry{}).View().Recipients; got == nil {
		t.Error("recipients should serialize as an empty list")
	}
}
