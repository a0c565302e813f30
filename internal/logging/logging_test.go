package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogging_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, lv, err := New(&buf, FormatJSON, "info")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lv.Level())

	log.Debug("hidden")
	log.Info("engine: poll loop started", "target", "8.8.8.8")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "engine: poll loop started", rec["msg"])
	require.Equal(t, "8.8.8.8", rec["target"])
}

func TestLogging_LevelVarChangesLive(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, lv, err := New(&buf, FormatText, "warn")
	require.NoError(t, err)

	log.Info("before")
	require.Empty(t, buf.String())

	require.NoError(t, SetLevel(lv, "debug"))
	log.Debug("after", "empty", "")
	require.Contains(t, buf.String(), "after")
	require.NotContains(t, buf.String(), "empty=")
}

func TestLogging_Invalid(t *testing.T) {
	t.Parallel()

	_, _, err := New(&bytes.Buffer{}, "xml", "info")
	require.Error(t, err)

	_, _, err = New(&bytes.Buffer{}, FormatJSON, "loud")
	require.Error(t, err)
}

func TestLogging_formatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 45, 123_456_789, time.FixedZone("x", 3600))
	require.Equal(t, "2024-03-01T11:30:45.123Z", formatRFC3339Millis(ts))
}
