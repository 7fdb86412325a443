package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withOutput routes the process logger into a buffer for the duration of the test.
func withOutput(t *testing.T, level string, format OutputFormat) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	InitLogger(level, format)
	t.Cleanup(func() {
		UnsetTestOutput()
		InitLogger("info", FormatText)
	})
	return buf
}

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		record := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &record), line)
		records = append(records, record)
	}
	return records
}

func TestInitLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		shown []string
		quiet []string
	}{
		{level: "debug", shown: []string{"dispatching", "fetch started", "slow host", "callback failed"}},
		{level: "info", shown: []string{"fetch started", "slow host", "callback failed"}, quiet: []string{"dispatching"}},
		{level: "WARN", shown: []string{"slow host", "callback failed"}, quiet: []string{"dispatching", "fetch started"}},
		{level: "error", shown: []string{"callback failed"}, quiet: []string{"dispatching", "fetch started", "slow host"}},
		{level: "loud", shown: []string{"fetch started"}, quiet: []string{"dispatching"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := withOutput(t, tt.level, FormatText)

			Debug("dispatching", Fields{"handle": 1})
			Info("fetch started", Fields{"url": "http://example.org/"})
			Warn("slow host")
			Error("callback failed", Fields{"error": "boom"})

			output := buf.String()
			for _, s := range tt.shown {
				assert.Contains(t, output, s)
			}
			for _, s := range tt.quiet {
				assert.NotContains(t, output, s)
			}
		})
	}
}

func TestInitLogger_JSON(t *testing.T) {
	buf := withOutput(t, "debug", FormatJSON)

	Debug("Fetch completed", Fields{"handle": 7, "url": "ftp://example.org/f", "success": true})
	Success("Body written", Fields{"path": "/tmp/out", "bytes": 11})
	Debugf("Fixture listening on %s", "127.0.0.1:21")

	records := jsonLines(t, buf)
	require.Len(t, records, 3)

	assert.Equal(t, "Fetch completed", records[0]["msg"])
	assert.Equal(t, "DEBUG", records[0]["level"])
	assert.Equal(t, float64(7), records[0]["handle"])
	assert.Equal(t, "ftp://example.org/f", records[0]["url"])
	assert.Equal(t, true, records[0]["success"])

	assert.Equal(t, "INFO", records[1]["level"])
	assert.Equal(t, "success", records[1]["status"])
	assert.Equal(t, float64(11), records[1]["bytes"])

	assert.Equal(t, "Fixture listening on 127.0.0.1:21", records[2]["msg"])
}

func TestSetOutputFormat_KeepsLevel(t *testing.T) {
	buf := withOutput(t, "warn", FormatText)

	SetOutputFormat(FormatJSON)
	Info("hidden")
	Warn("Fetch completion could not resolve its pinned references", Fields{"handle": 3})

	records := jsonLines(t, buf)
	require.Len(t, records, 1)
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, float64(3), records[0]["handle"])

	SetOutputFormat(FormatText)
	Debug("still hidden")
	Error("visible")
	assert.NotContains(t, buf.String(), "still hidden")
	assert.Contains(t, buf.String(), "level=ERROR msg=visible")
}

func TestGetOutput_DefaultsToStderr(t *testing.T) {
	UnsetTestOutput()
	assert.Same(t, os.Stderr, getOutput())

	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()
	assert.Same(t, buf, getOutput())
}

func TestGetLogger_InitializesIfNil(t *testing.T) {
	loggerMu.Lock()
	logger = nil
	loggerMu.Unlock()

	assert.NotNil(t, GetLogger())
	assert.Equal(t, slog.LevelInfo, currentLevel.Level())
}

func TestMergeFields(t *testing.T) {
	assert.Empty(t, mergeFields())

	attrs := mergeFields(Fields{"url": "http://example.org/"}, Fields{"code": 200})
	require.Len(t, attrs, 4)
	got := map[interface{}]interface{}{attrs[0]: attrs[1], attrs[2]: attrs[3]}
	assert.Equal(t, "http://example.org/", got["url"])
	assert.Equal(t, 200, got["code"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}
