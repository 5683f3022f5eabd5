package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitTracerProviderExportsToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()

	tp, err := InitTracerProvider(ctx, "sitesoft-test", 1, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	parentCtx, parent := Tracer().Start(ctx, "crawl")
	_, child := Tracer().Start(parentCtx, "crawl.task")
	child.SetAttributes(attribute.String("url.full", "https://a.test/"))
	child.End()
	parent.End()
	require.NoError(t, tp.ForceFlush(ctx))

	entries := logs.FilterMessage("span finished").All()
	require.Len(t, entries, 2)

	byName := map[string]map[string]any{}
	for _, e := range entries {
		fields := e.ContextMap()
		byName[fields["span"].(string)] = fields
	}
	require.Contains(t, byName, "crawl")
	require.Contains(t, byName, "crawl.task")
	assert.Equal(t, "https://a.test/", byName["crawl.task"]["url.full"])
	assert.Equal(t, byName["crawl"]["trace_id"], byName["crawl.task"]["trace_id"])
	assert.Equal(t, byName["crawl"]["span_id"], byName["crawl.task"]["parent_id"])
	assert.NotContains(t, byName["crawl"], "parent_id")
}

func TestZeroSampleRatioDropsRootSpans(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := context.Background()

	tp, err := InitTracerProvider(ctx, "sitesoft-test", 0, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(ctx, "crawl")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))
	assert.Zero(t, logs.FilterMessage("span finished").Len())
}

func TestLogExporterNilLogger(t *testing.T) {
	t.Parallel()

	e := NewLogExporter(nil)
	assert.NoError(t, e.ExportSpans(context.Background(), nil))
	assert.NoError(t, e.Shutdown(context.Background()))
}
