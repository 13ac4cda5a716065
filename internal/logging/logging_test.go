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

func TestNew_Production(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", true)

	l.Debug("hidden")
	l.Info("shown", "user_id", "u-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "u-1", entry["user_id"])
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", false)

	l.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestIntoFrom(t *testing.T) {
	assert.Same(t, slog.Default(), From(context.Background()))

	l := Discard()
	ctx := Into(context.Background(), l)
	assert.Same(t, l, From(ctx))
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "foobar@example.com", want: "fo***@example.com"},
		{in: "ab@ex.com", want: "***@ex.com"},
		{in: "no-at-here", want: "***"},
		{in: "a@b@c", want: "***"},
		{in: "", want: "***"},
		{in: "юзер@пример.рф", want: "юз***@пример.рф"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}
