package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// CreateUser registers a user. Emails are matched exactly.
func (s *Store) CreateUser(ctx context.Context, data store.UserData) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if _, exists := s.users.Load(data.Email); exists {
		return nil, store.ErrDuplicateEntry
	}
	u := &store.User{
		ID:           uuid.New().String(),
		Email:        data.Email,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		PasswordHash: append([]byte(nil), data.PasswordHash...),
		CreatedAt:    time.Now().UTC(),
	}
	s.users.Store(u.Email, u)
	c := *u
	return &c, nil
}

// GetUserByEmail looks a user up by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	v, ok := s.users.Load(email)
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *v.(*store.User)
	c.PasswordHash = append([]byte(nil), c.PasswordHash...)
	return &c, nil
}
