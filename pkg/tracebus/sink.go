package tracebus

import (
	"context"
	"time"

	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

// Span is the structured record TraceBus delivers to a Sink: one repo, git,
// or network operation, redacted before it ever reaches sink.Emit.
type Span struct {
	Type    string
	TsStart time.Time
	TsEnd   *time.Time
	CRA     string
	Ref     string
	Remote  string
	Err     string
}

// Sink receives redacted spans. Disabled by default: when no Sink is
// installed (the builder has no RegisterSinkExporter call), span creation
// through TracerOptions is a no-op, since the default TracerProvider is
// trace.NewNoopTracerProvider().
type Sink interface {
	Emit(Span)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Span)

func (f SinkFunc) Emit(s Span) { f(s) }

// sinkExporter adapts a Sink to the OpenTelemetry SDK's SpanExporter
// interface, so a Sink can be registered through TracerProviderBuilder like
// any other exporter.
type sinkExporter struct {
	sink Sink
}

func (e *sinkExporter) ExportSpans(ctx context.Context, spans []tracesdk.ReadOnlySpan) error {
	for _, s := range spans {
		span := Span{
			Type:    s.Name(),
			TsStart: s.StartTime(),
		}
		if end := s.EndTime(); !end.IsZero() {
			span.TsEnd = &end
		}
		for _, kv := range s.Attributes() {
			switch string(kv.Key) {
			case "cra":
				span.CRA = kv.Value.AsString()
			case "ref":
				span.Ref = kv.Value.AsString()
			case "remote":
				span.Remote = kv.Value.AsString()
			}
		}
		for _, ev := range s.Events() {
			if ev.Name == "exception" {
				for _, kv := range ev.Attributes {
					if string(kv.Key) == "exception.message" {
						span.Err = kv.Value.AsString()
					}
				}
			}
		}
		e.sink.Emit(Redact(span))
	}
	return nil
}

func (e *sinkExporter) Shutdown(ctx context.Context) error { return nil }
