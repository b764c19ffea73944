package webmail

import (
	"errors"
	"testing"
	"time"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := newOptions()

	if o.logger == nil {
		t.Error("expected default logger")
	}
	if o.clock == nil {
		t.Error("expected default clock")
	}
	if o.maxQueryLimit != DefaultMaxQueryLimit {
		t.Errorf("maxQueryLimit = %d", o.maxQueryLimit)
	}
	if o.maxConcurrentComposes != DefaultMaxConcurrentComposes {
		t.Errorf("maxConcurrentComposes = %d", o.maxConcurrentComposes)
	}
	if o.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdownTimeout = %v", o.shutdownTimeout)
	}
	if o.onEventPublishFailure == nil {
		t.Error("expected default event failure handler")
	}
	if o.getLimits() != DefaultLimits() {
		t.Errorf("limits = %+v", o.getLimits())
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	o := newOptions(
		WithStore(nil),
		WithDirectory(nil),
		WithExporter(nil),
		WithLogger(nil),
		WithClock(nil),
		WithPlugin(nil),
		WithMaxBodySize(0),
		WithMaxRecipients(-1),
		WithMaxSubjectLength(0),
		WithMaxQueryLimit(0),
		WithMaxConcurrentComposes(0),
		WithShutdownTimeout(10*time.Millisecond),
		WithServiceName(""),
		WithEventTransport(nil),
		WithRedisClient(nil),
		WithEventPublishFailureHandler(nil),
	)

	if o.store != nil || o.directory != nil || o.exporter != nil {
		t.Error("nil collaborators should be ignored")
	}
	if o.logger == nil || o.clock == nil {
		t.Error("nil logger or clock should keep the default")
	}
	if len(o.plugins) != 0 {
		t.Errorf("plugins = %d", len(o.plugins))
	}
	if o.getLimits() != DefaultLimits() {
		t.Errorf("limits changed: %+v", o.getLimits())
	}
	if o.maxQueryLimit != DefaultMaxQueryLimit {
		t.Errorf("maxQueryLimit changed: %d", o.maxQueryLimit)
	}
	if o.maxConcurrentComposes != DefaultMaxConcurrentComposes {
		t.Errorf("maxConcurrentComposes changed: %d", o.maxConcurrentComposes)
	}
	if o.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdown timeout below minimum accepted: %v", o.shutdownTimeout)
	}
	if o.serviceName != "" {
		t.Errorf("serviceName = %q", o.serviceName)
	}
}

func TestOTelOptions(t *testing.T) {
	o := newOptions(WithOTel(true))
	if !o.tracingEnabled || !o.metricsEnabled {
		t.Error("WithOTel(true) should enable tracing and metrics")
	}
	o = newOptions(WithOTel(true), WithMetrics(false))
	if !o.tracingEnabled || o.metricsEnabled {
		t.Error("later option should win")
	}

	instr, err := newOtelInstrumentation(newOptions(WithOTel(true)))
	if err != nil {
		t.Fatalf("instrumentation: %v", err)
	}
	if instr.tracer == nil {
		t.Error("expected tracer from global provider")
	}
}

func TestSafeEventPublishFailure(t *testing.T) {
	var gotName string
	var gotErr error
	o := newOptions(WithEventPublishFailureHandler(func(name string, err error) {
		gotName, gotErr = name, err
	}))
	boom := errors.New("boom")
	o.safeEventPublishFailure("EmailSent", boom)
	if gotName != "EmailSent" || gotErr != boom {
		t.Errorf("handler got %q %v", gotName, gotErr)
	}

	o = newOptions(WithEventPublishFailureHandler(func(string, error) { panic("handler bug") }))
	o.safeEventPublishFailure("EmailRead", boom) // must not panic
}
