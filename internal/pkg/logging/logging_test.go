package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestNewRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTraceID(ctx, "trace-1")

	logger := NewRequestLogger(ctx, base)
	ctx = WithLogger(ctx, logger)
	FromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestFromContext_Fallback(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestGenerateTraceID(t *testing.T) {
	a, b := GenerateTraceID(), GenerateTraceID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
