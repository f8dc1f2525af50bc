package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	buf.Reset()
	return line
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "paper-builder", "production", "warn")
	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	line := decodeLine(t, &buf)
	assert.Equal(t, "paper-builder", line["app"])
	assert.Equal(t, "production", line["env"])
	assert.Equal(t, "shown", line["message"])

	for _, level := range []string{"", "chatty"} {
		logger = newLogger(&buf, "paper-builder", "production", level)
		logger.Debug().Msg("hidden")
		logger.Info().Msg("shown")
		assert.Equal(t, "shown", decodeLine(t, &buf)["message"], level)
	}
}

func TestContextCarriesStaff(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, "paper-builder", "test", "debug")

	ctx := WithStaff(IntoContext(context.Background(), base), "staff-1")
	logger := FromContext(ctx)
	logger.Info().Msg("saved")
	assert.Equal(t, "staff-1", decodeLine(t, &buf)["staff_id"])

	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
}
