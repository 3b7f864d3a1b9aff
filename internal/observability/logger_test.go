// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/guestpass/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncBuffer adapts a bytes.Buffer into a zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console logger colorizes levels", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &syncBuffer{}

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}, buf)
		GetLogger().Info("field filled")
		Sync()

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "field filled")
		assert.Contains(t, out, colorGreen)
		assert.Contains(t, out, colorReset)
		assert.Contains(t, out, "TestService.")
	})

	t.Run("json logger emits structured fields", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, buf)
		GetLogger().Warn("field not found", zap.String("field", "city"))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "field not found", entry["msg"])
		assert.Equal(t, "city", entry["field"])
	})

	t.Run("level below threshold is dropped", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, buf)
		GetLogger().Info("hidden")
		Sync()

		assert.Empty(t, buf.String())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, buf)
		GetLogger().Debug("hidden")
		GetLogger().Info("shown")
		Sync()

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("file sink receives json", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		logPath := filepath.Join(t.TempDir(), "guestpass.log")

		Initialize(config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logPath,
			MaxSize: 1,
		}, zapcore.AddSync(&syncBuffer{}))
		GetLogger().Error("browser launch failed", zap.Int("attempt", 1))
		Sync()

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"browser launch failed"`)
		assert.Contains(t, string(data), `"attempt":1`)
	})

	t.Run("initialize runs once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		first := &syncBuffer{}
		second := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)
		GetLogger().Info("once")
		Sync()

		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("still works") })
	assert.NotPanics(t, Sync)
}
