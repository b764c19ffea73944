package directory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/webmail/store"
	"github.com/rbaliyan/webmail/store/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func setupDirectory(t *testing.T, opts ...Option) (*Directory, *memory.Store) {
	t.Helper()
	s := memory.New()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return New(s, opts...), s
}

func mustRegister(t *testing.T, d *Directory, email string) {
	t.Helper()
	_, err := d.Register(context.Background(), RegisterRequest{Email: email, Password: "pw", Confirmation: "pw"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

func TestParseAddresses(t *testing.T) {
	tests := []struct {
		in    string
		want  []string
		empty bool
	}{
		{"", []string{""}, true},
		{"   ", []string{""}, true},
		{"a@x.com", []string{"a@x.com"}, false},
		{" a@x.com , b@x.com ", []string{"a@x.com", "b@x.com"}, false},
		{"a@x.com,a@x.com", []string{"a@x.com", "a@x.com"}, false},
		{"a@x.com,", []string{"a@x.com", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAddresses(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAddresses(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if IsEmpty(got) != tt.empty {
				t.Errorf("IsEmpty = %v, want %v", IsEmpty(got), tt.empty)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	d, _ := setupDirectory(t)
	mustRegister(t, d, "ann@example.com")
	mustRegister(t, d, "bob@example.com")

	t.Run("no recipients", func(t *testing.T) {
		for _, in := range []string{"", "  "} {
			if _, err := d.Resolve(ctx, in); !errors.Is(err, ErrNoRecipients) {
				t.Errorf("Resolve(%q): expected ErrNoRecipients, got %v", in, err)
			}
		}
	})

	t.Run("resolves in order with duplicates", func(t *testing.T) {
		users, err := d.Resolve(ctx, "bob@example.com, ann@example.com,bob@example.com")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		var got []string
		for _, u := range users {
			got = append(got, u.Email)
		}
		want := []string{"bob@example.com", "ann@example.com", "bob@example.com"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("first unknown address fails", func(t *testing.T) {
		_, err := d.Resolve(ctx, "ann@example.com, ghost@example.com, phantom@example.com")
		var unknown *UnknownRecipientError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownRecipientError, got %v", err)
		}
		if unknown.Address != "ghost@example.com" {
			t.Errorf("expected ghost@example.com, got %q", unknown.Address)
		}
		if !errors.Is(err, ErrUnknownRecipient) {
			t.Error("expected error to match ErrUnknownRecipient")
		}
	})

	t.Run("trailing comma names an empty address", func(t *testing.T) {
		_, err := d.Resolve(ctx, "ann@example.com,")
		var unknown *UnknownRecipientError
		if !errors.As(err, &unknown) || unknown.Address != "" {
			t.Errorf("expected unknown empty address, got %v", err)
		}
	})

	t.Run("lookup never exposes password hash", func(t *testing.T) {
		u, err := d.Lookup(ctx, "ann@example.com")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if u.PasswordHash != nil {
			t.Error("expected password hash to be stripped")
		}
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	d, _ := setupDirectory(t)

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"valid", RegisterRequest{Email: "ann@example.com", Password: "pw", Confirmation: "pw"}, nil},
		{"duplicate", RegisterRequest{Email: "ann@example.com", Password: "pw", Confirmation: "pw"}, ErrUserExists},
		{"mismatch", RegisterRequest{Email: "bob@example.com", Password: "pw", Confirmation: "other"}, ErrPasswordMismatch},
		{"empty email", RegisterRequest{Password: "pw", Confirmation: "pw"}, ErrInvalidEmail},
		{"malformed email", RegisterRequest{Email: "not an address", Password: "pw", Confirmation: "pw"}, ErrInvalidEmail},
		{"empty password", RegisterRequest{Email: "cat@example.com"}, ErrEmptyPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := d.Register(ctx, tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if u.Email != tt.req.Email {
					t.Errorf("expected email %q, got %q", tt.req.Email, u.Email)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	d, _ := setupDirectory(t)
	mustRegister(t, d, "ann@example.com")

	if _, err := d.Authenticate(ctx, "ann@example.com", "pw"); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}
	if _, err := d.Authenticate(ctx, "ann@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := d.Authenticate(ctx, "nobody@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d, _ := setupDirectory(t, WithCache(client, time.Minute), WithCachePrefix("test:"))
	mustRegister(t, d, "ann@example.com")

	t.Run("lookup populates cache", func(t *testing.T) {
		if _, err := d.Lookup(ctx, "ann@example.com"); err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if !mr.Exists("test:ann@example.com") {
			t.Fatal("expected cache entry after lookup")
		}
		if ttl := mr.TTL("test:ann@example.com"); ttl != time.Minute {
			t.Errorf("expected ttl 1m, got %v", ttl)
		}
	})

	t.Run("cached entry carries no hash", func(t *testing.T) {
		raw, err := mr.Get("test:ann@example.com")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		u, ok := d.cache.get(ctx, "ann@example.com")
		if !ok {
			t.Fatalf("expected cache hit for %s", raw)
		}
		if u.Email != "ann@example.com" || u.PasswordHash != nil {
			t.Errorf("unexpected cached user %+v", u)
		}
	})

	t.Run("misses are not cached", func(t *testing.T) {
		if _, err := d.Lookup(ctx, "ghost@example.com"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if mr.Exists("test:ghost@example.com") {
			t.Error("miss must not be cached")
		}
	})

	t.Run("authenticate bypasses cache", func(t *testing.T) {
		if _, err := d.Authenticate(ctx, "ann@example.com", "pw"); err != nil {
			t.Errorf("authenticate: %v", err)
		}
	})
}
