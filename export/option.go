package export

import (
	"log/slog"
	"os"
	"time"
)

type options struct {
	hostname string
	logger   *slog.Logger
	clock    func() time.Time
}

// Option configures an Archiver.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		hostname: "webmail.local",
		logger:   slog.Default(),
		clock:    time.Now,
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		o.hostname = h
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHostname sets the domain used in generated Message-IDs.
// Default is the machine hostname.
func WithHostname(h string) Option {
	return func(o *options) {
		if h != "" {
			o.hostname = h
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time used to name archives.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
