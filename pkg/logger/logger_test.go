package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(Replace(Logger()))

	require.NoError(t, Init(Config{Level: "debug", Service: "authcore"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, SetLevel("warn"))
	require.False(t, Logger().Core().Enabled(zap.InfoLevel))
	require.True(t, Logger().Core().Enabled(zap.WarnLevel))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	t.Cleanup(Replace(Logger()))
	before := Logger()

	require.ErrorContains(t, Init(Config{Level: "loud"}), "loud")
	require.Same(t, before, Logger())
	require.Error(t, SetLevel("loud"))
}

func TestNewConsoleFormat(t *testing.T) {
	l, err := New(Config{Level: "", Format: "console"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zap.InfoLevel))
	require.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("auth").Info("module test")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "auth", entries[0].ContextMap()["module"])
}

func TestReplaceRestoresPreviousLogger(t *testing.T) {
	original := Logger()
	core, recorded := observer.New(zap.InfoLevel)

	restore := Replace(zap.New(core))
	Logger().Info("captured")
	restore()
	Logger().Info("dropped")

	require.Equal(t, 1, recorded.Len())
	require.Same(t, original, Logger())

	t.Cleanup(Replace(nil))
	require.NotNil(t, Logger())
}
