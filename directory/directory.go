// Package directory maps email addresses to registered users. It parses the
// free-text recipient field of a compose request, resolves each address with
// fail-fast semantics, and owns registration and password authentication.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/rbaliyan/webmail/store"
	"golang.org/x/crypto/bcrypt"
)

// Directory resolves addresses against a store.UserStore.
type Directory struct {
	users  store.UserStore
	cache  *userCache
	opts   *options
	logger *slog.Logger
}

// New creates a Directory backed by users.
func New(users store.UserStore, opts ...Option) *Directory {
	o := newOptions(opts...)
	d := &Directory{users: users, opts: o, logger: o.logger}
	if o.redisClient != nil {
		d.cache = &userCache{
			client: o.redisClient,
			ttl:    o.cacheTTL,
			prefix: o.cachePrefix,
			logger: o.logger,
		}
	}
	return d
}

// ParseAddresses splits a comma-separated recipient field and trims each
// segment. Segments are kept in order, duplicates and empty segments included.
func ParseAddresses(text string) []string {
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// IsEmpty reports whether a parsed address list names nobody: no segments,
// or a single empty segment.
func IsEmpty(addrs []string) bool {
	return len(addrs) == 0 || (len(addrs) == 1 && addrs[0] == "")
}

// Resolve parses text and resolves every address in order.
func (d *Directory) Resolve(ctx context.Context, text string) ([]*store.User, error) {
	return d.ResolveAddresses(ctx, ParseAddresses(text))
}

// ResolveAddresses resolves a pre-split address list. It stops at the first
// address that is not registered and returns *UnknownRecipientError for it.
// The result has one element per input address, duplicates preserved.
func (d *Directory) ResolveAddresses(ctx context.Context, addrs []string) ([]*store.User, error) {
	if IsEmpty(addrs) {
		return nil, ErrNoRecipients
	}

	users := make([]*store.User, 0, len(addrs))
	seen := make(map[string]*store.User, len(addrs))
	for _, addr := range addrs {
		if u, ok := seen[addr]; ok {
			users = append(users, u)
			continue
		}
		u, err := d.Lookup(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &UnknownRecipientError{Address: addr}
			}
			return nil, err
		}
		seen[addr] = u
		users = append(users, u)
	}
	return users, nil
}

// Lookup resolves a single address by exact match. Returns an error
// wrapping store.ErrNotFound when the address is not registered.
func (d *Directory) Lookup(ctx context.Context, email string) (*store.User, error) {
	if email == "" {
		return nil, fmt.Errorf("directory: lookup %q: %w", email, store.ErrNotFound)
	}
	if d.cache != nil {
		if u, ok := d.cache.get(ctx, email); ok {
			return u, nil
		}
	}

	u, err := d.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("directory: lookup %q: %w", email, err)
	}
	u.PasswordHash = nil

	if d.cache != nil {
		d.cache.set(ctx, u)
	}
	return u, nil
}

// RegisterRequest carries the fields of a sign-up form.
type RegisterRequest struct {
	Email        string
	Password     string
	Confirmation string
	FirstName    string
	LastName     string
}

// Register creates a new user with a bcrypt-hashed password.
func (d *Directory) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if req.Password == "" {
		return nil, ErrEmptyPassword
	}
	if req.Password != req.Confirmation {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.opts.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("directory: hash password: %w", err)
	}

	u, err := d.users.CreateUser(ctx, store.UserData{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("directory: register: %w", err)
	}

	d.logger.Info("user registered", "email", u.Email)
	u.PasswordHash = nil
	return u, nil
}

// Authenticate verifies a password. Unknown users and wrong passwords both
// yield ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	u, err := d.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("directory: authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	u.PasswordHash = nil
	return u, nil
}
