package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/config"
)

func testLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "bookingnav-test",
		Colors: config.ColorConfig{
			Debug: "cyan", Info: "green", Warn: "yellow", Error: "red", Fatal: "magenta",
		},
	}
}

func TestInitialize_ConsoleOutput(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &zaptest.Buffer{}
	Initialize(testLoggerConfig(), buf)

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("hello from the test")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "hello from the test")
	assert.Contains(t, out, "bookingnav-test.")
	// Console format colorizes the level.
	assert.Contains(t, out, "\x1b[32mINFO\x1b[0m")
}

func TestInitialize_InvalidLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := testLoggerConfig()
	cfg.Level = "loudest"
	buf := &zaptest.Buffer{}
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Debug("should be filtered")
	logger.Info("should appear")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestInitialize_RunsOnlyOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &zaptest.Buffer{}
	second := &zaptest.Buffer{}
	Initialize(testLoggerConfig(), first)
	Initialize(testLoggerConfig(), second)

	GetLogger().Info("routed to the first writer")
	require.NoError(t, GetLogger().Sync())

	assert.Contains(t, first.String(), "routed to the first writer")
	assert.Empty(t, strings.TrimSpace(second.String()))
}

func TestGetLogger_FallbackBeforeInitialization(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger, "fallback logger must always be available")
	// Callers report errors straight through GetLogger without a nil guard,
	// so the fallback has to be usable, not just non-nil.
	assert.NotPanics(t, func() { logger.Error("reported before initialization") })
}
