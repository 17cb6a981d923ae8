// Package tracebus implements TraceBus (C10): structured spans with
// redaction, observed by every repo/git/network operation, emitted through
// pluggable sinks. It keeps the teacher's FuncTracer pattern (a higher-level
// wrapper over trace.Tracer that instruments a closure) as the mechanism
// underneath a small Sink/redaction layer the teacher never needed.
package tracebus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// FuncTracer is a higher-level type than the core trace.Tracer, which allows
// instrumenting a function running in a closure. It creates a span with the
// given name (plus a pre-configured prefix) and lets the error be
// registered with the span automatically.
type FuncTracer interface {
	trace.Tracer
	TraceFunc(ctx context.Context, spanName string, fn TraceFunc, opts ...trace.SpanStartOption) TraceFuncResult
}

// FuncTracerFromGlobal returns a new FuncTracer with the given name that
// uses the globally-registered tracing provider.
func FuncTracerFromGlobal(name string) FuncTracer {
	useGlobal := true
	return TracerOptions{Name: name, UseGlobal: &useGlobal}
}

// BackgroundTracingContext returns a background context carrying a no-op
// span whose TracerProvider defers to the global one, for callers outside
// any request-scoped context.
func BackgroundTracingContext() context.Context {
	ctx := context.Background()
	noopSpan := trace.SpanFromContext(ctx)
	return trace.ContextWithSpan(ctx, &tracerProviderSpan{noopSpan, true})
}

type tracerProviderSpan struct {
	trace.Span
	useGlobal bool
}

func (s *tracerProviderSpan) TracerProvider() trace.TracerProvider {
	if s.useGlobal {
		return otel.GetTracerProvider()
	}
	return s.Span.TracerProvider()
}

// TracerNamed lets a type supply its own tracer name to FromContext.
type TracerNamed interface {
	TracerName() string
}

// FromContext derives a FuncTracer named after obj, using whatever
// TracerProvider is already attached to ctx's span.
func FromContext(ctx context.Context, obj interface{}) FuncTracer {
	name := "<unknown>"
	if tr, ok := obj.(TracerNamed); ok {
		name = tr.TracerName()
	} else if str, ok := obj.(string); ok {
		name = str
	} else if obj != nil {
		name = fmt.Sprintf("%T", obj)
	}

	switch obj {
	case os.Stdin:
		name = "os.Stdin"
	case os.Stdout:
		name = "os.Stdout"
	case os.Stderr:
		name = "os.Stderr"
	case io.Discard:
		name = "io.Discard"
	}

	return TracerOptions{Name: name, provider: trace.SpanFromContext(ctx).TracerProvider()}
}

func FromContextUnnamed(ctx context.Context) FuncTracer {
	return FromContext(ctx, "")
}

// TraceFuncResult lets a caller either just read the error from TraceFunc,
// or register it with the span first using the default or a custom handler.
type TraceFuncResult interface {
	Error() error
	Register() error
	RegisterCustom(fn ErrRegisterFunc) error
}

var ErrFuncNotSupplied = errors.New("function argument not supplied")

func MakeFuncNotSuppliedError(name string) error {
	return fmt.Errorf("%w: %s", ErrFuncNotSupplied, name)
}

// TraceFunc represents an instrumented function closure.
type TraceFunc func(context.Context, trace.Span) error

// ErrRegisterFunc registers the return error of TraceFunc err with the span.
type ErrRegisterFunc func(span trace.Span, err error)

var _ trace.Tracer = TracerOptions{}
var _ FuncTracer = TracerOptions{}

// TracerOptions contains options for creating a trace.Tracer and FuncTracer.
type TracerOptions struct {
	// Name, if non-empty, prefixes spans created through TraceFunc as
	// "{Name}.{spanName}", and names the underlying trace.Tracer.
	Name string
	// UseGlobal defaults to the global tracing provider if true (or a
	// no-op provider if false), unless provider/tracer are set directly.
	UseGlobal *bool
	provider  trace.TracerProvider
	tracer    trace.Tracer
}

func (o TracerOptions) fmtSpanName(spanName string) string {
	if len(o.Name) != 0 && len(spanName) != 0 {
		return o.Name + "." + spanName
	}
	name := o.Name + spanName
	if len(name) != 0 {
		return name
	}
	return "unnamed_span"
}

func (o TracerOptions) tracerProvider() trace.TracerProvider {
	switch {
	case o.provider != nil:
		return o.provider
	case o.UseGlobal != nil && *o.UseGlobal:
		return otel.GetTracerProvider()
	default:
		return trace.NewNoopTracerProvider()
	}
}

func (o TracerOptions) getTracer() trace.Tracer {
	if o.tracer == nil {
		o.tracer = o.tracerProvider().Tracer(o.Name)
	}
	return o.tracer
}

func (o TracerOptions) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return o.getTracer().Start(ctx, o.fmtSpanName(spanName), opts...)
}

func (o TracerOptions) TraceFunc(ctx context.Context, spanName string, fn TraceFunc, opts ...trace.SpanStartOption) TraceFuncResult {
	ctx, span := o.Start(ctx, spanName, opts...)
	if fn == nil {
		return &traceFuncResult{MakeFuncNotSuppliedError("FuncTracer.TraceFunc"), span}
	}
	return &traceFuncResult{fn(ctx, span), span}
}

// traceFuncResult's span is only ended once one of Error/Register/
// RegisterCustom is called.
type traceFuncResult struct {
	err  error
	span trace.Span
}

func (r *traceFuncResult) Error() error {
	r.span.End()
	return r.err
}

func (r *traceFuncResult) Register() error {
	return r.RegisterCustom(DefaultErrRegisterFunc)
}

func (r *traceFuncResult) RegisterCustom(fn ErrRegisterFunc) error {
	if fn == nil {
		err := errors.Join(r.err, MakeFuncNotSuppliedError("TraceFuncResult.RegisterCustom"))
		DefaultErrRegisterFunc(r.span, err)
		r.span.End()
		return err
	}
	fn(r.span, r.err)
	r.span.End()
	return r.err
}

// DefaultErrRegisterFunc records err with the span if non-nil.
func DefaultErrRegisterFunc(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
