package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorAttachesErrorField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Error("merge", "merge failed", map[string]interface{}{"error": errors.New("corrupt file")})
	l.Info("intake", "files added", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "merge", first["module"])
	assert.Equal(t, "corrupt file", first["error"])

	second := entries[1].ContextMap()
	assert.Equal(t, "intake", second["module"])
	assert.Equal(t, map[string]interface{}{}, second["details"])
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fusiondoc.log")
	l := New(path, true)

	l.Info("server", "started", map[string]interface{}{"port": "8080"})
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"started"`)
	assert.Contains(t, string(data), `"module":"server"`)
}
