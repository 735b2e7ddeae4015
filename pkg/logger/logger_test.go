package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	var buf bytes.Buffer
	log := New(WarnLevel, &buf)

	log.Info("dropped", nil)
	log.Warn("kept", map[string]interface{}{"k": "v"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
	assert.Equal(t, "v", lines[0]["k"])
	assert.Equal(t, "warn", lines[0]["level"])
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	var buf bytes.Buffer
	base := New(InfoLevel, &buf)

	child := base.WithFields(map[string]interface{}{"component": "repo"})
	child.Info("child", nil)
	base.Info("parent", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "repo", lines[0]["component"])
	_, found := lines[1]["component"]
	assert.False(t, found)
}

func TestLogger_ContextAddsRequestID(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	var buf bytes.Buffer
	log := New(InfoLevel, &buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	log.InfoContext(ctx, "handled", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-42", lines[0]["request_id"])
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
