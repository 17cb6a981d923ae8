package tracebus

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// SDKTracerProvider is a TracerProvider generated from the OpenTelemetry SDK,
// and so can be force-flushed and shut down.
type SDKTracerProvider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// NewBuilder returns a new TracerProviderBuilder instance.
func NewBuilder() TracerProviderBuilder {
	return &builder{}
}

// TracerProviderBuilder is a builder for an SDKTracerProvider. Unlike the
// teacher's version (which also wired OTLP-gRPC and Jaeger exporters), this
// one registers only the stdout exporter plus an in-process Sink exporter —
// gitgraft's TraceBus observes repo/git/network spans, not a distributed
// trace pipeline with a collector to forward to.
type TracerProviderBuilder interface {
	// RegisterStdoutExporter exports pretty-formatted telemetry data to
	// os.Stdout, or another writer if stdouttrace.WithWriter(w) is given.
	RegisterStdoutExporter(opts ...stdouttrace.Option) TracerProviderBuilder
	// RegisterSinkExporter registers a Sink as a span exporter, so every
	// span started through this provider is also redacted and delivered
	// to sink.
	RegisterSinkExporter(sink Sink) TracerProviderBuilder
	WithOptions(opts ...tracesdk.TracerProviderOption) TracerProviderBuilder
	WithAttributes(attrs ...attribute.KeyValue) TracerProviderBuilder
	WithSynchronousExports(sync bool) TracerProviderBuilder
	WithLogging(log bool) TracerProviderBuilder
	Build() (SDKTracerProvider, error)
	InstallGlobally() error
}

type builder struct {
	exporters []tracesdk.SpanExporter
	errs      []error
	tpOpts    []tracesdk.TracerProviderOption
	attrs     []attribute.KeyValue
	sync      bool
	log       bool
}

func (b *builder) RegisterStdoutExporter(opts ...stdouttrace.Option) TracerProviderBuilder {
	defaultOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	opts = append(defaultOpts, opts...)
	exp, err := stdouttrace.New(opts...)
	b.exporters = append(b.exporters, exp)
	b.errs = append(b.errs, err)
	return b
}

func (b *builder) RegisterSinkExporter(sink Sink) TracerProviderBuilder {
	b.exporters = append(b.exporters, &sinkExporter{sink: sink})
	return b
}

func (b *builder) WithOptions(opts ...tracesdk.TracerProviderOption) TracerProviderBuilder {
	b.tpOpts = append(b.tpOpts, opts...)
	return b
}

func (b *builder) WithAttributes(attrs ...attribute.KeyValue) TracerProviderBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

func (b *builder) WithSynchronousExports(sync bool) TracerProviderBuilder {
	b.sync = sync
	return b
}

func (b *builder) WithLogging(log bool) TracerProviderBuilder {
	b.log = log
	return b
}

var ErrNoExportersProvided = errors.New("no exporters provided")

func (b *builder) Build() (SDKTracerProvider, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	if len(b.exporters) == 0 {
		return nil, ErrNoExportersProvided
	}

	defaultAttrs := []attribute.KeyValue{semconv.ServiceNameKey.String("gitgraft")}
	attrs := append(defaultAttrs, b.attrs...)

	defaultTpOpts := []tracesdk.TracerProviderOption{
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	}
	for _, exporter := range b.exporters {
		if b.sync {
			defaultTpOpts = append(defaultTpOpts, tracesdk.WithSyncer(exporter))
		} else {
			defaultTpOpts = append(defaultTpOpts, tracesdk.WithBatcher(exporter))
		}
	}

	opts := append(defaultTpOpts, b.tpOpts...)
	tpsdk := tracesdk.NewTracerProvider(opts...)
	if b.log {
		return NewLoggingTracerProvider(tpsdk), nil
	}
	return tpsdk, nil
}

func (b *builder) InstallGlobally() error {
	tp, err := b.Build()
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	return nil
}

// Shutdown converts tp to an SDKTracerProvider (if possible) and flushes and
// stops it, bounded by timeout if non-zero.
func Shutdown(ctx context.Context, tp trace.TracerProvider, timeout time.Duration) error {
	return callSDKProvider(ctx, tp, timeout, func(ctx context.Context, sp SDKTracerProvider) error {
		return sp.Shutdown(ctx)
	})
}

// ForceFlush is like Shutdown but leaves the provider usable afterwards.
func ForceFlush(ctx context.Context, tp trace.TracerProvider, timeout time.Duration) error {
	return callSDKProvider(ctx, tp, timeout, func(ctx context.Context, sp SDKTracerProvider) error {
		return sp.ForceFlush(ctx)
	})
}

func callSDKProvider(ctx context.Context, tp trace.TracerProvider, timeout time.Duration, fn func(context.Context, SDKTracerProvider) error) error {
	p, ok := tp.(SDKTracerProvider)
	if !ok {
		return nil
	}
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, p)
}

func ShutdownGlobal(ctx context.Context, timeout time.Duration) error {
	return Shutdown(ctx, otel.GetTracerProvider(), timeout)
}

func ForceFlushGlobal(ctx context.Context, timeout time.Duration) error {
	return ForceFlush(ctx, otel.GetTracerProvider(), timeout)
}
