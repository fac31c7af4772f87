package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLoggingConfig(t *testing.T, ws string, debug bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".tc"), 0755))
	content := `{"logging":{"debug_mode":true,"level":"debug"}}`
	if !debug {
		content = `{"logging":{"debug_mode":false}}`
	}
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".tc", "logging.json"), []byte(content), 0644))
}

func resetLoggingState() {
	CloseAll()
	workspace = ""
	logsDir = ""
	configLoaded = false
	config = loggingConfig{}
}

func TestInitializeNoConfigIsNoOp(t *testing.T) {
	defer resetLoggingState()
	ws := t.TempDir()

	require.NoError(t, Initialize(ws))
	require.False(t, IsDebugMode())

	_, err := os.Stat(filepath.Join(ws, ".tc", "logs"))
	require.True(t, os.IsNotExist(err))
}

func TestInitializeWithDebugCreatesLogFile(t *testing.T) {
	defer resetLoggingState()
	ws := t.TempDir()
	writeLoggingConfig(t, ws, true)

	require.NoError(t, Initialize(ws))
	require.True(t, IsDebugMode())

	Engine("tick %d", 1)

	entries, err := os.ReadDir(filepath.Join(ws, ".tc", "logs"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestCategoryDisabledIsNoOp(t *testing.T) {
	defer resetLoggingState()
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".tc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".tc", "logging.json"), []byte(
		`{"logging":{"debug_mode":true,"categories":{"engine":false}}}`), 0644))

	require.NoError(t, Initialize(ws))
	require.False(t, IsCategoryEnabled(CategoryEngine))
	require.True(t, IsCategoryEnabled(CategoryStore))
}

func TestTimerStop(t *testing.T) {
	defer resetLoggingState()
	timer := StartTimer(CategoryStore, "noop")
	elapsed := timer.Stop()
	require.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
}
