package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   logger.LogLevel
		emit    func(l logger.Logger)
		visible bool
	}{
		{"debug hidden at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("probe") }, false},
		{"info shown at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("probe") }, true},
		{"trace shown at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("probe") }, true},
		{"warn hidden at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("probe") }, false},
		{"explicit level", logger.LogLevelWarn, func(l logger.Logger) { l.Log(logger.LogLevelError, "probe") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.emit(logger.NewSlogLogger(&buf, tt.level, time.UTC))
			assert.Equal(t, tt.visible, strings.Contains(buf.String(), "probe"), buf.String())
		})
	}
}

func TestModuleFieldsAndTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)
	log := base.Module("datastore").Module("sqlite").With(logger.String("collection", "specimens"))

	ctx := logger.WithTraceID(context.Background(), "trace-42")
	log.WithContext(ctx).Info("saved", logger.Int("count", 3), logger.Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=datastore.sqlite")
	assert.Contains(t, out, "collection=specimens")
	assert.Contains(t, out, "trace_id=trace-42")
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "time=")
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)
	_ = parent.With(logger.String("child_only", "yes"))
	parent.Info("parent entry")

	assert.NotContains(t, buf.String(), "child_only")
}

func TestCentralLoggerRoutesModuleToFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.log")
	accessPath := filepath.Join(dir, "access.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: mainPath, Level: "info", MaxSize: 1},
		ModuleOutputs: map[string]logger.ModuleOutput{
			"access":   {Enabled: true, FilePath: accessPath, Level: "info"},
			"security": {Enabled: false},
		},
	})
	require.NoError(t, err)

	cl.Module("access").Info("GET /", logger.Int("status", 200))
	cl.Module("bureau").Info("specimen saved")
	require.NoError(t, cl.Close())

	access, err := os.ReadFile(accessPath)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(access), &entry))
	assert.Equal(t, "GET /", entry["msg"])
	assert.Equal(t, "access", entry["module"])

	mainLog, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	assert.Contains(t, string(mainLog), "specimen saved")
	assert.NotContains(t, string(mainLog), "GET /")
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{
		Timezone:   "Mars/Olympus",
		Console:    &logger.ConsoleOutput{Enabled: false},
		FileOutput: &logger.FileOutput{Enabled: false},
	})
	require.Error(t, err)
}

func TestGormAdapterLogsQueryErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC), 0)

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM specimens", 0
	}, errors.New("no such table"))
	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	out := buf.String()
	assert.Contains(t, out, "query error")
	assert.Contains(t, out, "no such table")
	assert.NotContains(t, out, "SELECT 1")
}
