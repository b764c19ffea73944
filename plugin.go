package webmail

import (
	"context"
	"errors"
	"log/slog"
)

// Plugin defines the interface for service extensions.
//
// For observing reads and archives, subscribe to the service events instead.
type Plugin interface {
	// Name returns the plugin identifier.
	Name() string
	// Init is called when the service connects.
	Init(ctx context.Context) error
	// Close is called when the service closes.
	Close(ctx context.Context) error
}

// ComposeHookRequest is handed to BeforeCompose after recipients are resolved.
type ComposeHookRequest struct {
	Sender     string
	Recipients []string // resolved emails, duplicates preserved
	Subject    string
	Body       string
}

// ComposeHook runs around Compose.
type ComposeHook interface {
	Plugin
	// BeforeCompose runs before anything is stored. Return an error to abort.
	BeforeCompose(ctx context.Context, req ComposeHookRequest) error
	// AfterCompose runs after the entries are committed. The compose cannot
	// be rolled back; an error is returned to the caller alongside the result.
	AfterCompose(ctx context.Context, result *ComposeResult) error
}

type pluginRegistry struct {
	all     []Plugin
	compose []ComposeHook
	logger  *slog.Logger
}

func newPluginRegistry(logger *slog.Logger) *pluginRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &pluginRegistry{logger: logger}
}

func (r *pluginRegistry) register(p Plugin) {
	r.all = append(r.all, p)

	if h, ok := p.(ComposeHook); ok {
		r.compose = append(r.compose, h)
	}
}

// initAll initializes all plugins.
// On failure, already-initialized plugins are closed in reverse order.
func (r *pluginRegistry) initAll(ctx context.Context) error {
	for i, p := range r.all {
		if err := p.Init(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if closeErr := r.all[j].Close(ctx); closeErr != nil {
					r.logger.Error("failed to close plugin during init rollback",
						"plugin", r.all[j].Name(), "error", closeErr)
				}
			}
			return &PluginError{Plugin: p.Name(), Op: "init", Err: err}
		}
	}
	return nil
}

// closeAll closes all plugins in reverse order.
func (r *pluginRegistry) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(r.all) - 1; i >= 0; i-- {
		if err := r.all[i].Close(ctx); err != nil {
			errs = append(errs, &PluginError{Plugin: r.all[i].Name(), Op: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// PluginError represents an error from a plugin.
type PluginError struct {
	Plugin string
	Op     string
	Err    error
}

func (e *PluginError) Error() string {
	return "plugin " + e.Plugin + " " + e.Op + ": " + e.Err.Error()
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

func (r *pluginRegistry) beforeCompose(ctx context.Context, req ComposeHookRequest) error {
	for _, h := range r.compose {
		if err := h.BeforeCompose(ctx, req); err != nil {
			return &PluginError{Plugin: h.Name(), Op: "BeforeCompose", Err: err}
		}
	}
	return nil
}

func (r *pluginRegistry) afterCompose(ctx context.Context, result *ComposeResult) error {
	for _, h := range r.compose {
		if err := h.AfterCompose(ctx, result); err != nil {
			return &PluginError{Plugin: h.Name(), Op: "AfterCompose", Err: err}
		}
	}
	return nil
}
