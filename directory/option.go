package directory

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Default configuration values.
const (
	DefaultCacheTTL    = 5 * time.Minute
	DefaultCachePrefix = "webmail:directory:"
)

type options struct {
	logger      *slog.Logger
	bcryptCost  int
	redisClient redis.UniversalClient
	cacheTTL    time.Duration
	cachePrefix string
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:      slog.Default(),
		bcryptCost:  bcrypt.DefaultCost,
		cacheTTL:    DefaultCacheTTL,
		cachePrefix: DefaultCachePrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Directory.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBcryptCost sets the password hashing cost. Values outside
// bcrypt's accepted range are ignored.
func WithBcryptCost(cost int) Option {
	return func(o *options) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			o.bcryptCost = cost
		}
	}
}

// WithCache enables a Redis-backed lookup cache for resolved addresses.
// Only public user fields are cached; authentication always reads the store.
func WithCache(client redis.UniversalClient, ttl time.Duration) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithCachePrefix sets the Redis key prefix for cached lookups.
func WithCachePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.cachePrefix = prefix
		}
	}
}
