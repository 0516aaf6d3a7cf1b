package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"basic path", "firecalclogs", filepath.Join("firecalclogs", "firecalc.20260212_213836.log")},
		{"relative path with dot", "./firecalclogs", filepath.Join(".", "firecalclogs", "firecalc.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log"), filepath.Join("/var", "log", "firecalc.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "firecalc", start))
		})
	}
}

func swapStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := osStdout
	osStdout = &buf
	t.Cleanup(func() { osStdout = orig })
	return &buf
}

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	stdout := swapStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("hello file")

	assert.Contains(t, file.String(), "hello file")
	assert.Empty(t, stdout.String())
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	stdout := swapStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("hello console")

	assert.Contains(t, stdout.String(), "hello console")
}

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

func TestSetup_GELFSinkReceivesJSON(t *testing.T) {
	var file bytes.Buffer
	sink := &closingBuffer{}
	m := NewSlogManager()
	m.Setup(&file, "info", sink)

	m.Logger().Info("shot solved", "gun", "g1")

	lines := strings.Split(strings.TrimSpace(sink.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "shot solved", entry["msg"])
	assert.Equal(t, "g1", entry["gun"])
	assert.Contains(t, file.String(), "shot solved")

	require.NoError(t, m.Close())
	assert.True(t, sink.closed)
	assert.NoError(t, m.Close())
}

func TestSetup_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestWriteLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("solve", level+" message", level)

			assert.Contains(t, buf.String(), level+" message")
			assert.Contains(t, buf.String(), "function=solve")
		})
	}

	// no logger yet: must not panic
	NewSlogManager().WriteLog("fn", "data", "info")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"invalid": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

type errorHandler struct{ slog.Handler }

func (errorHandler) Handle(context.Context, slog.Record) error { return errors.New("handler error") }
func (errorHandler) Enabled(context.Context, slog.Level) bool  { return true }

func TestMultiHandler(t *testing.T) {
	t.Run("fans out", func(t *testing.T) {
		var a, b bytes.Buffer
		logger := slog.New(NewMultiHandler(slog.NewTextHandler(&a, nil), nil, slog.NewTextHandler(&b, nil)))
		logger.Info("fanned out")
		assert.Contains(t, a.String(), "fanned out")
		assert.Contains(t, b.String(), "fanned out")
	})

	t.Run("enabled if any handler is", func(t *testing.T) {
		info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
		debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
		assert.False(t, NewMultiHandler(info).Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, NewMultiHandler(info, debug).Enabled(context.Background(), slog.LevelDebug))
		assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("attrs and groups", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(slog.NewTextHandler(&buf, nil))
		slog.New(m.WithAttrs([]slog.Attr{slog.String("mission", "m1")}).WithGroup("shot")).Info("x", "gun", "g1")
		assert.Contains(t, buf.String(), "mission=m1")
		assert.Contains(t, buf.String(), "shot.gun=g1")
		assert.Same(t, m, m.WithGroup(""))
	})

	t.Run("failure does not stop delivery", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(errorHandler{}, slog.NewTextHandler(&buf, nil))
		r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0)
		err := m.Handle(context.Background(), r)
		assert.Error(t, err)
		assert.Contains(t, buf.String(), "should reach spy")
	})
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.Info("event complete", "command", "next", "guns", 2, 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "event complete", entry["message"])
	assert.Equal(t, "next", entry["command"])
	assert.Equal(t, float64(2), entry["guns"])
	assert.Len(t, entry, 4)
}

func TestToFields_SkipsNonStringKeys(t *testing.T) {
	assert.Equal(t, map[string]any{"b": 2}, toFields([]any{1, "a", "b", 2, "dangling"}))
}
