package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "stage",
		attribute.String(StageKey, "fetch"))
	SetError(span, errors.New("origin unreachable"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "origin unreachable", ended[0].Status().Description)

	eventNames := make([]string, 0, len(ended[0].Events()))
	for _, event := range ended[0].Events() {
		eventNames = append(eventNames, event.Name)
	}

	assert.Contains(t, eventNames, "exception")
	assert.Contains(t, eventNames, "error_occurred")
}
