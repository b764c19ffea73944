package webmail

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/webmail"
)

// opMetrics is the latency/count/errors triple recorded for one operation.
type opMetrics struct {
	latency metric.Float64Histogram
	count   metric.Int64Counter
	errors  metric.Int64Counter
}

func newOpMetrics(meter metric.Meter, op, what string) (opMetrics, error) {
	var m opMetrics
	var err error

	m.latency, err = meter.Float64Histogram(
		"webmail."+op+".duration",
		metric.WithDescription("Duration of "+op+" operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return m, err
	}

	m.count, err = meter.Int64Counter(
		"webmail."+op+".count",
		metric.WithDescription("Number of "+what),
	)
	if err != nil {
		return m, err
	}

	m.errors, err = meter.Int64Counter(
		"webmail."+op+".errors",
		metric.WithDescription("Number of "+op+" errors"),
	)
	return m, err
}

func (m opMetrics) record(ctx context.Context, d time.Duration, err error, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	m.latency.Record(ctx, d.Seconds(), opt)
	m.count.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
}

// otelInstrumentation holds OpenTelemetry instrumentation for the service.
type otelInstrumentation struct {
	tracingEnabled bool
	tracer         trace.Tracer

	metricsEnabled bool
	compose        opMetrics
	list           opMetrics
	get            opMetrics
	update         opMetrics
	export         opMetrics
}

func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error
	if o.compose, err = newOpMetrics(meter, "compose", "messages composed"); err != nil {
		return err
	}
	if o.list, err = newOpMetrics(meter, "list", "folder listings"); err != nil {
		return err
	}
	if o.get, err = newOpMetrics(meter, "get", "entry reads"); err != nil {
		return err
	}
	if o.update, err = newOpMetrics(meter, "update", "flag updates"); err != nil {
		return err
	}
	if o.export, err = newOpMetrics(meter, "export", "folder exports"); err != nil {
		return err
	}
	return nil
}

// startSpan starts a span when tracing is enabled. The returned func ends it,
// recording err if non-nil.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (o *otelInstrumentation) recordCompose(ctx context.Context, d time.Duration, recipientCount int, err error) {
	if !o.metricsEnabled {
		return
	}
	o.compose.record(ctx, d, err, attribute.Int("recipient_count", recipientCount))
}

func (o *otelInstrumentation) recordList(ctx context.Context, d time.Duration, folder Folder, resultCount int, err error) {
	if !o.metricsEnabled {
		return
	}
	o.list.record(ctx, d, err,
		attribute.String("folder", folder.String()),
		attribute.Int("result_count", resultCount),
	)
}

func (o *otelInstrumentation) recordGet(ctx context.Context, d time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}
	o.get.record(ctx, d, err)
}

func (o *otelInstrumentation) recordUpdate(ctx context.Context, d time.Duration, flags Flags, err error) {
	if !o.metricsEnabled {
		return
	}
	o.update.record(ctx, d, err,
		attribute.Bool("read_set", flags.Read != nil),
		attribute.Bool("archived_set", flags.Archived != nil),
	)
}

func (o *otelInstrumentation) recordExport(ctx context.Context, d time.Duration, folder Folder, count int, err error) {
	if !o.metricsEnabled {
		return
	}
	o.export.record(ctx, d, err,
		attribute.String("folder", folder.String()),
		attribute.Int("entry_count", count),
	)
}
