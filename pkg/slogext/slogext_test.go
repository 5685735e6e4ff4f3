package slogext

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"error": slog.LevelError,
		"warn":  slog.LevelWarn,
		"info":  slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"trace": LevelTrace,
	} {
		got, err := ParseLevel(name)
		require.NoErrorf(t, err, "level %q", name)
		require.Equalf(t, want, got, "level %q", name)
	}

	_, err := ParseLevel("noisy")
	require.Error(t, err)
}

func TestParseLevelOff(t *testing.T) {
	off, err := ParseLevel("off")
	require.NoError(t, err)

	// off must sit above everything a record can reasonably carry
	require.Greater(t, off, slog.LevelError)
}

func TestFanout(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	log := slog.New(NewFanout(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	log.Info("connection established")
	log.Error("command failed")

	require.Contains(t, debugBuf.String(), "connection established")
	require.Contains(t, debugBuf.String(), "command failed")
	require.NotContains(t, errorBuf.String(), "connection established")
	require.Contains(t, errorBuf.String(), "command failed")
}

func TestFanoutEnabled(t *testing.T) {
	f := NewFanout(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	ctx := context.Background()
	require.True(t, f.Enabled(ctx, slog.LevelError))
	require.True(t, f.Enabled(ctx, slog.LevelWarn))
	require.False(t, f.Enabled(ctx, slog.LevelInfo))
}

func TestFanoutOffNeverFires(t *testing.T) {
	var buf bytes.Buffer
	off, err := ParseLevel("off")
	require.NoError(t, err)

	log := slog.New(NewFanout(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: off}),
	))
	log.Error("command failed")

	require.Zero(t, buf.Len())
}
