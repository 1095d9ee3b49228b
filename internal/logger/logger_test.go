package logger

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
	tests := []struct {
		name     string
		want     slog.Level
		fallback slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelInfo},
		{" WARNING ", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelDebug},
		{"", slog.LevelInfo, slog.LevelInfo},
		{"verbose", slog.LevelDebug, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.name, tt.fallback))
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil)).With("request_id", "abc")

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "hello", line["msg"])
}
