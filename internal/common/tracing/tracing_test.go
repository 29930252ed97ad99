// Package tracing 提供 OpenTelemetry 分布式追踪单元测试
package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(&config.TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.provider)
	assert.NoError(t, p.Shutdown(context.Background()))

	p, err = Init(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, p.provider)
}

func TestInit_StdoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	p, err := Init(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "dorm-test",
		Exporter:    "stdout",
		SampleRate:  1.0,
	}, &buf)
	require.NoError(t, err)
	require.NotNil(t, p.provider)

	ctx, span := Start(context.Background(), "db.query", WithDBStatement("sqlite", "query", "dorm", "SELECT 1")...)
	assert.True(t, span.SpanContext().IsValid())
	End(span, errors.New("boom"))
	_ = ctx

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "db.query")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "dorm-test")
}

func TestStart_WithoutProvider(t *testing.T) {
	_, span := Start(context.Background(), "noop")
	assert.NotNil(t, span)
	assert.NotPanics(t, func() { End(span, nil) })
}
