package api

import (
	"log/slog"
	"time"
)

type options struct {
	logger        *slog.Logger
	secret        []byte
	sessionMaxAge time.Duration
	secureCookies bool
	rateRequests  int
	ratePer       time.Duration
	maxBodyBytes  int64
	clock         func() time.Time
}

// Option configures a Server.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		logger:        slog.Default(),
		sessionMaxAge: 7 * 24 * time.Hour,
		rateRequests:  30,
		ratePer:       time.Minute,
		maxBodyBytes:  11 << 20,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionSecret sets the HS256 signing key. Without it a random key is
// generated and sessions do not survive a restart.
func WithSessionSecret(secret string) Option {
	return func(o *options) {
		if secret != "" {
			o.secret = []byte(secret)
		}
	}
}

// WithSessionMaxAge sets how long a login stays valid. Default is 7 days.
func WithSessionMaxAge(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sessionMaxAge = d
		}
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(o *options) {
		o.secureCookies = secure
	}
}

// WithRateLimit allows each client IP requests mutating calls per period,
// with bursts up to requests. Default is 30 per minute.
func WithRateLimit(requests int, per time.Duration) Option {
	return func(o *options) {
		if requests > 0 && per > 0 {
			o.rateRequests = requests
			o.ratePer = per
		}
	}
}

// WithMaxBodyBytes caps request bodies. Default is 11 MiB, which leaves
// room for JSON framing around the largest message body.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithClock overrides the time source for sessions and rate limiting.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
