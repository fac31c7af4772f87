package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func TestCreateAndGetBootstrapChecksByProject(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)

	_, err := s.CreateBootstrapCheck(core.BootstrapCheck{
		ProjectID: p.ID,
		Name:      "node present",
		CheckType: "command",
		Passed:    true,
		Stdout:    "v20.11.0",
	})
	require.NoError(t, err)
	_, err = s.CreateBootstrapCheck(core.BootstrapCheck{
		ProjectID: p.ID,
		Name:      "docker present",
		CheckType: "command",
		Passed:    false,
		Stderr:    "command not found",
		ExitCode:  127,
	})
	require.NoError(t, err)

	checks, err := s.GetBootstrapChecksByProject(p.ID)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	require.True(t, checks[0].Passed)
	require.False(t, checks[1].Passed)
	require.Equal(t, 127, checks[1].ExitCode)
}
