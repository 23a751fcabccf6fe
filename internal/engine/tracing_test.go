package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
)

func TestTracing_SpansPerOperation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	store := memstore.New(1, 2)
	store.Put(ir.Item{Ref: ref(1, 1), Name: "x", Type: "post", Status: "publish"})
	store.Put(ir.Item{Ref: ref(2, 1), Name: "x", Type: "post", Status: "publish"})
	e := New(store, store, WithTracer(tp.Tracer("test")), WithLogger(zerolog.Nop()))

	_, err := e.FindUnlinkedChildren(context.Background(), ref(1, 1), []ir.NodeID{2})
	require.NoError(t, err)
	_, err = e.Propagate(context.Background(), ir.CommandTrash, ref(1, 1))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "engine.FindUnlinkedChildren", spans[0].Name())
	assert.Equal(t, "engine.Propagate", spans[1].Name())
}

func TestTracing_RecordsFailure(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	store := memstore.New(1)
	store.Fail(memstore.OpDeleteLink, ref(1, 1), errBoom)
	e := New(store, store, WithTracer(tp.Tracer("test")), WithLogger(zerolog.Nop()))

	_, err := e.Propagate(context.Background(), ir.CommandDelete, ref(1, 1))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
