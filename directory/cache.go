package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/rbaliyan/webmail/store"
	"github.com/redis/go-redis/v9"
)

// cachedUser is the cached subset of store.User. It never holds the password hash.
type cachedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// userCache is a read-through cache of known addresses. Misses are never
// cached because an address can be registered at any time.
type userCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func (c *userCache) key(email string) string {
	return c.prefix + email
}

func (c *userCache) get(ctx context.Context, email string) (*store.User, bool) {
	data, err := c.client.Get(ctx, c.key(email)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("directory cache get failed", "email", email, "error", err)
		}
		return nil, false
	}
	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		c.logger.Warn("directory cache entry corrupt", "email", email, "error", err)
		return nil, false
	}
	return &store.User{
		ID:        cu.ID,
		Email:     cu.Email,
		FirstName: cu.FirstName,
		LastName:  cu.LastName,
		CreatedAt: cu.CreatedAt,
	}, true
}

func (c *userCache) set(ctx context.Context, u *store.User) {
	data, err := json.Marshal(cachedUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(u.Email), data, c.ttl).Err(); err != nil {
		c.logger.Warn("directory cache set failed", "email", u.Email, "error", err)
	}
}
