package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFields_Constructors(t *testing.T) {
	now := time.Now()
	id := uuid.MustParse("6f1c3f4e-8f4b-4c55-9c1e-2d8c0c6b9a10")

	require.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	require.Equal(t, Field{Key: "k", Value: 1}, Int("k", 1))
	require.Equal(t, Field{Key: "k", Value: int64(2)}, Int64("k", int64(2)))
	require.Equal(t, Field{Key: "k", Value: now}, Time("k", now))
	require.Equal(t, Field{Key: "k", Value: time.Second}, Duration("k", time.Second))
	require.Equal(t, Field{Key: "k", Value: true}, Bool("k", true))
	require.Equal(t, Field{Key: "id", Value: id.String()}, Stringer("id", id))
	require.Equal(t, Field{Key: "err", Value: "boom"}, Err(errors.New("boom")))
	require.Equal(t, Field{Key: "err", Value: nil}, Err(nil))
}

func TestNopLogger_NoPanic(t *testing.T) {
	l := Nop()
	l.Debug("d", String("k", "v"))
	l.Info("i", Int("n", 1))
	l.Warn("w")
	l.Error("e")

	l2 := l.With(String("x", "y"))
	require.NotNil(t, l2)
	require.NoError(t, l2.Sync())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for raw, want := range tests {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewJSON_WritesServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, slog.LevelInfo, "dispatch-api")

	l.With(String("tenant_id", "t1")).Info("dispatch status changed", String("to", "assigned"))
	l.Debug("filtered out")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	require.Equal(t, "dispatch-api", rec["service"])
	require.Equal(t, "t1", rec["tenant_id"])
	require.Equal(t, "assigned", rec["to"])
	require.Equal(t, "dispatch status changed", rec["msg"])
}

func TestSlogAdapter_Levels(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewSlogAdapter(base)

	l.Debug("msg", String("k", "v"))
	l.Warn("msg", String("k", "v"))
	l.Error("msg", Err(errors.New("x")))
	require.Len(t, toSlogArgs([]Field{String("a", "b"), Int("n", 1)}), 2)
	require.NoError(t, l.Sync())
}
