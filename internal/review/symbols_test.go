package review

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyChangedFileGo(t *testing.T) {
	src := []byte(`package demo

func Spawn() error { return nil }

type Manager struct {
	active bool
}
`)
	summary, err := classifyChangedFile("internal/session/manager.go", src)
	require.NoError(t, err)
	require.Equal(t, "go", summary.Language)
	require.Contains(t, summary.Symbols, "func Spawn")
	require.Contains(t, summary.Symbols, "type Manager")
}

func TestClassifyChangedFilePython(t *testing.T) {
	src := []byte(`class Repository:
    def get_task(self, task_id):
        return None
`)
	summary, err := classifyChangedFile("tc/db/repository.py", src)
	require.NoError(t, err)
	require.Equal(t, "python", summary.Language)
	require.Contains(t, summary.Symbols, "class Repository")
}

func TestClassifyChangedFileUnsupportedExtension(t *testing.T) {
	summary, err := classifyChangedFile("README.md", []byte("# hello"))
	require.NoError(t, err)
	require.Empty(t, summary.Language)
	require.Empty(t, summary.Symbols)
}
