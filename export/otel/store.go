// Package otel wraps an export.BlobStore with OpenTelemetry spans and metrics.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rbaliyan/webmail/export"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rbaliyan/webmail/export/otel"

// instruments is the metric set recorded for one blob operation.
type instruments struct {
	duration metric.Float64Histogram
	count    metric.Int64Counter
	errors   metric.Int64Counter
	bytes    metric.Int64Counter // nil for delete
}

func newInstruments(meter metric.Meter, op string, withBytes bool) (*instruments, error) {
	prefix := "export.blob." + op
	var (
		in  instruments
		err error
	)
	if in.duration, err = meter.Float64Histogram(prefix+".duration",
		metric.WithDescription("Duration of blob "+op+" operations"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if in.count, err = meter.Int64Counter(prefix+".count",
		metric.WithDescription("Number of blob "+op+" operations")); err != nil {
		return nil, err
	}
	if in.errors, err = meter.Int64Counter(prefix+".errors",
		metric.WithDescription("Number of failed blob "+op+" operations")); err != nil {
		return nil, err
	}
	if withBytes {
		if in.bytes, err = meter.Int64Counter(prefix+".bytes",
			metric.WithDescription("Bytes transferred by blob "+op+" operations"),
			metric.WithUnit("By")); err != nil {
			return nil, err
		}
	}
	return &in, nil
}

func (in *instruments) record(ctx context.Context, d time.Duration, err error, attrs []attribute.KeyValue) {
	if in == nil {
		return
	}
	set := metric.WithAttributes(attrs...)
	in.duration.Record(ctx, d.Seconds(), set)
	in.count.Add(ctx, 1, set)
	if err != nil {
		in.errors.Add(ctx, 1, set)
	}
}

func (in *instruments) addBytes(ctx context.Context, n int64, attrs []attribute.KeyValue) {
	if in == nil || in.bytes == nil {
		return
	}
	in.bytes.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Store is an instrumented export.BlobStore.
type Store struct {
	backend export.BlobStore
	opts    *options
	tracer  trace.Tracer

	upload *instruments
	load   *instruments
	delete *instruments
}

var _ export.BlobStore = (*Store)(nil)

// New wraps backend.
func New(backend export.BlobStore, opts ...Option) (*Store, error) {
	o := &options{
		tracingEnabled: true,
		metricsEnabled: true,
		serviceName:    "webmail",
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{backend: backend, opts: o}
	if o.tracingEnabled {
		s.tracer = o.tracerProvider.Tracer(instrumentationName)
	}
	if o.metricsEnabled {
		meter := o.meterProvider.Meter(instrumentationName)
		var err error
		if s.upload, err = newInstruments(meter, "upload", true); err != nil {
			return nil, fmt.Errorf("init upload metrics: %w", err)
		}
		if s.load, err = newInstruments(meter, "load", true); err != nil {
			return nil, fmt.Errorf("init load metrics: %w", err)
		}
		if s.delete, err = newInstruments(meter, "delete", false); err != nil {
			return nil, fmt.Errorf("init delete metrics: %w", err)
		}
	}
	return s, nil
}

// startSpan returns a nil span when tracing is off.
func (s *Store) startSpan(ctx context.Context, name string, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, nil
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindClient))
}

func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attrs...)
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (s *Store) Upload(ctx context.Context, name, contentType string, content io.Reader) (string, error) {
	attrs := []attribute.KeyValue{
		attribute.String("blob.name", name),
		attribute.String("blob.content_type", contentType),
		attribute.String("service.name", s.opts.serviceName),
	}
	ctx, span := s.startSpan(ctx, "export.blob.upload", attrs)
	start := time.Now()

	cr := &countingReader{r: content}
	uri, err := s.backend.Upload(ctx, name, contentType, cr)

	s.upload.record(ctx, time.Since(start), err, attrs)
	s.upload.addBytes(ctx, cr.n, attrs)
	endSpan(span, err, attribute.String("blob.uri", uri), attribute.Int64("blob.bytes", cr.n))
	return uri, err
}

// Load keeps the span open until the returned reader is closed so the
// span covers the transfer and records its size.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	attrs := []attribute.KeyValue{
		attribute.String("blob.uri", uri),
		attribute.String("service.name", s.opts.serviceName),
	}
	ctx, span := s.startSpan(ctx, "export.blob.load", attrs)
	start := time.Now()

	r, err := s.backend.Load(ctx, uri)
	s.load.record(ctx, time.Since(start), err, attrs)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	return &instrumentedReader{ReadCloser: r, ctx: ctx, span: span, in: s.load, attrs: attrs}, nil
}

func (s *Store) Delete(ctx context.Context, uri string) error {
	attrs := []attribute.KeyValue{
		attribute.String("blob.uri", uri),
		attribute.String("service.name", s.opts.serviceName),
	}
	ctx, span := s.startSpan(ctx, "export.blob.delete", attrs)
	start := time.Now()

	err := s.backend.Delete(ctx, uri)

	s.delete.record(ctx, time.Since(start), err, attrs)
	endSpan(span, err)
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type instrumentedReader struct {
	io.ReadCloser
	ctx    context.Context
	span   trace.Span
	in     *instruments
	attrs  []attribute.KeyValue
	n      int64
	closed bool
}

func (r *instrumentedReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}

func (r *instrumentedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.ReadCloser.Close()
	r.in.addBytes(r.ctx, r.n, r.attrs)
	endSpan(r.span, err, attribute.Int64("blob.bytes", r.n))
	return err
}
