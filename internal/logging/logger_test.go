package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "warn message")
	assert.Contains(t, lines[1], "error message")
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithService("test-service"))

	logger.Info("saved leads", "user_id", "u-1", "count", 42)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "saved leads", entry["message"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, float64(42), fields["count"])
}

func TestLoggerCorrelationIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))

	ctx := WithCorrelationID(context.Background(), "corr-123")
	logger.InfoWithContext(ctx, "request completed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-123", entry["correlation_id"])
}

func TestGenerateCorrelationID(t *testing.T) {
	a := GenerateCorrelationID()
	b := GenerateCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
