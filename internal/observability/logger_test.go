package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zentab/tabagent/internal/config"
)

// initBuffered resets the singleton and initializes the logger against an
// in-memory console writer, returning the buffer for inspection.
func initBuffered(t *testing.T, cfg config.LoggerConfig) *bytes.Buffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(cfg, zapcore.AddSync(&buf))
	return &buf
}

func TestInitializeConsoleLogger(t *testing.T) {
	buf := initBuffered(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "TestService",
	})

	GetLogger().Named("planner").Info("this is a test message")

	output := buf.String()
	assert.Contains(t, output, "INFO", "output should contain the log level")
	assert.Contains(t, output, "this is a test message")
	// Console name encoder appends a trailing dot per segment.
	assert.Contains(t, output, "TestService.")
}

func TestInitializeJSONLogger(t *testing.T) {
	buf := initBuffered(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "JSONTest",
	})

	GetLogger().Warn("this is a JSON message", zap.String("key", "value"))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry), "log output should be valid JSON")
	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "JSONTest", logEntry["logger"])
	assert.Equal(t, "this is a JSON message", logEntry["msg"])
	assert.Equal(t, "value", logEntry["key"])
}

func TestInitializeRespectsLevel(t *testing.T) {
	buf := initBuffered(t, config.LoggerConfig{
		Level:       "warn",
		Format:      "json",
		ServiceName: "LevelTest",
	})

	GetLogger().Info("too quiet to appear")
	GetLogger().Warn("loud enough")

	output := buf.String()
	assert.NotContains(t, output, "too quiet to appear")
	assert.Contains(t, output, "loud enough")
}

func TestInitializeBadLevelFallsBackToInfo(t *testing.T) {
	buf := initBuffered(t, config.LoggerConfig{
		Level:       "extremely-verbose",
		Format:      "json",
		ServiceName: "BadLevel",
	})

	GetLogger().Debug("debug is below the fallback level")
	GetLogger().Info("info passes")

	output := buf.String()
	assert.NotContains(t, output, "debug is below the fallback level")
	assert.Contains(t, output, "info passes")
}

func TestInitializeWritesLogFile(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := t.TempDir() + "/tabagent-test.log"
	var buf bytes.Buffer
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "json",
		ServiceName: "FileTest",
		LogFile:     logFile,
		MaxSize:     1,
	}, zapcore.AddSync(&buf))

	GetLogger().Error("this should go to the file")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "this should go to the file")
}

func TestInitializeOnlyOnce(t *testing.T) {
	buf := initBuffered(t, config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "First",
	})

	// A second call must be a no-op; the first configuration wins.
	var second bytes.Buffer
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "Second",
	}, zapcore.AddSync(&second))

	GetLogger().Info("test")
	assert.True(t, strings.Contains(buf.String(), "First"))
	assert.Empty(t, second.String())
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Safe to use before Initialize; this must not panic.
	logger.Debug("fallback logger in use")
}

func TestGetLoggerReturnsGlobal(t *testing.T) {
	initBuffered(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "GlobalTest",
	})

	assert.Equal(t, globalLogger.Load(), GetLogger())
}
