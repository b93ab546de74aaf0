package monitoring

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedLogger(buf *bytes.Buffer) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}
}

func TestScoringLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := newCapturedLogger(&buf)

	l.ScoringLogger("agency-1", 42, 1500*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "Scoring Run Completed", entry["msg"])
	assert.Equal(t, "agency-1", entry["agency_id"])
	assert.Equal(t, float64(42), entry["customers"])
	assert.Equal(t, float64(1500), entry["duration_ms"])
	assert.NotContains(t, entry, "cache_hit")
}

func TestAuthLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newCapturedLogger(&buf)

	l.AuthLogger("agency-1", "agent@example.com", "203.0.113.9", false, false)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "WARN", entry["level"], "failed attempts log at warn")
	assert.Equal(t, "agent@example.com", entry["agent"])
	assert.NotContains(t, entry, "pin")
}
