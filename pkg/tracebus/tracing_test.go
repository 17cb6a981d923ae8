package tracebus

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceFuncRegistersError(t *testing.T) {
	tracer := TracerOptions{Name: "repostore"}
	wantErr := errors.New("boom")

	result := tracer.TraceFunc(context.Background(), "sync", func(ctx context.Context, span trace.Span) error {
		return wantErr
	})
	assert.Equal(t, wantErr, result.Register())
}

func TestSpanNameIncludesPrefix(t *testing.T) {
	o := TracerOptions{Name: "repostore"}
	assert.Equal(t, "repostore.sync", o.fmtSpanName("sync"))

	o2 := TracerOptions{}
	assert.Equal(t, "sync", o2.fmtSpanName("sync"))
}

func TestTraceFuncNilFuncErrors(t *testing.T) {
	tracer := TracerOptions{Name: "repostore"}
	result := tracer.TraceFunc(context.Background(), "sync", nil)
	require.Error(t, result.Error())
}

func TestNoSinkIsNoop(t *testing.T) {
	tracer := TracerOptions{Name: "repostore"}
	ctx, span := tracer.Start(context.Background(), "clone")
	assert.NotNil(t, ctx)
	span.End()
}
