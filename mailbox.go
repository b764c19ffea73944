package webmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"github.com/rbaliyan/webmail/directory"
	"github.com/rbaliyan/webmail/store"
	"golang.org/x/sync/semaphore"
)

// ListOptions is re-exported so callers need not import store.
type ListOptions = store.ListOptions

// Service owns the storage connection and hands out per-user mailboxes.
type Service interface {
	// IsConnected reports whether the service is connected and ready.
	IsConnected() bool
	// Connect connects the store, starts the event bus and initializes plugins.
	Connect(ctx context.Context) error
	// Close waits for in-flight composes and releases resources.
	Close(ctx context.Context) error
	// Client returns the mailbox of the user identified by email.
	// The returned client shares the service's connections.
	Client(userID string) Mailbox
	// Events returns the per-service event instances.
	Events() *ServiceEvents
}

// Mailbox is one user's view of the system. Every operation is scoped to
// that user.
type Mailbox interface {
	UserID() string

	// Compose resolves recipients and stores one copy per mailbox involved.
	Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error)

	// List returns one page of a folder.
	List(ctx context.Context, folder string, opts ListOptions) (*EntryList, error)
	Inbox(ctx context.Context, opts ListOptions) (*EntryList, error)
	Sent(ctx context.Context, opts ListOptions) (*EntryList, error)
	Archive(ctx context.Context, opts ListOptions) (*EntryList, error)

	// Get returns an entry owned by this user.
	Get(ctx context.Context, id string) (Entry, error)

	// Update applies a partial flag update to an entry owned by this user.
	Update(ctx context.Context, id string, flags Flags) error

	// Export renders a folder and hands it to the configured Exporter.
	Export(ctx context.Context, folder string) (*ExportResult, error)
}

const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

type service struct {
	store       store.Store
	directory   *directory.Directory
	logger      *slog.Logger
	opts        *options
	state       int32
	plugins     *pluginRegistry
	otel        *otelInstrumentation
	composeSem  *semaphore.Weighted
	eventBus    *event.Bus
	events      *ServiceEvents
	ownsBusConn bool
}

// NewService creates a webmail service. Call Connect before use.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}
	if o.directory == nil {
		return nil, ErrDirectoryRequired
	}

	plugins := newPluginRegistry(o.logger)
	for _, p := range o.plugins {
		plugins.register(p)
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:      o.store,
		directory:  o.directory,
		logger:     o.logger,
		opts:       o,
		plugins:    plugins,
		otel:       otelInstr,
		composeSem: semaphore.NewWeighted(int64(o.maxConcurrentComposes)),
	}, nil
}

func (s *service) Events() *ServiceEvents {
	return s.events
}

func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

func (s *service) Connect(ctx context.Context) error {
	// disconnected -> connecting -> connected, so Client never sees a
	// half-initialized service.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil && !errors.Is(err, store.ErrAlreadyConnected) {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		_ = s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	if err := s.plugins.initAll(ctx); err != nil {
		_ = s.eventBus.Close(ctx)
		_ = s.store.Close(ctx)
		return fmt.Errorf("init plugins: %w", err)
	}

	success = true
	s.logger.Info("webmail service connected")
	return nil
}

// busCounter gives every bus in the process a unique name.
var busCounter int64

func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "webmail"
	}
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
		s.ownsBusConn = true
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
		s.ownsBusConn = true
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		_ = bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}
	return nil
}

func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// New composes fail checkAccess from here on. Taking every semaphore slot
	// waits out the ones already running.
	s.logger.Info("waiting for in-flight composes to complete", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()
	n := int64(s.opts.maxConcurrentComposes)
	if err := s.composeSem.Acquire(shutdownCtx, n); err != nil {
		s.logger.Warn("timeout waiting for in-flight composes, proceeding with shutdown", "error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.composeSem.Release(n)
	}

	if err := s.plugins.closeAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close plugins: %w", err))
	}

	if s.eventBus != nil && s.ownsBusConn {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

func (s *service) Client(userID string) Mailbox {
	return &userMailbox{
		userID:      userID,
		service:     s,
		validUserID: isValidUserID(userID),
	}
}

// isValidUserID rejects empty ids and characters that are unsafe in cache
// keys and log lines. Emails pass.
func isValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	for _, c := range userID {
		if c == '*' || c == ':' || c == '/' || c == '\\' ||
			c == ' ' || c < 32 || c == 127 {
			return false
		}
	}
	return true
}

type userMailbox struct {
	userID      string
	service     *service
	validUserID bool
}

func (m *userMailbox) UserID() string {
	return m.userID
}

func (m *userMailbox) checkAccess() error {
	if atomic.LoadInt32(&m.service.state) != stateConnected {
		return ErrNotConnected
	}
	if !m.validUserID {
		return ErrInvalidUserID
	}
	return nil
}
