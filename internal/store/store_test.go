package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProject(t *testing.T, s *Store) core.Project {
	t.Helper()
	p, err := s.CreateProject(core.Project{Name: "demo", ProjectDir: "/tmp/demo", PRDPath: "PRD.md"})
	require.NoError(t, err)
	return p
}

func TestOpenInitializesSchema(t *testing.T) {
	s := openTestStore(t)
	_, err := s.db.Exec(`SELECT 1 FROM projects LIMIT 1`)
	require.NoError(t, err)
	_, err = s.db.Exec(`SELECT 1 FROM sessions LIMIT 1`)
	require.NoError(t, err)
}

func TestCreateAndGetProject(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)

	require.NotEmpty(t, p.ID)
	require.Equal(t, core.ProjectStatusInitialized, p.Status)

	fetched, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, fetched.Name)
}

func TestGetProjectNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetProject("missing")
	require.Error(t, err)
	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestUpdateProjectStatus(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)

	require.NoError(t, s.UpdateProjectStatus(p.ID, core.ProjectStatusPlanning))
	require.NoError(t, s.UpdateProjectStatus(p.ID, core.ProjectStatusPlanned))
	require.NoError(t, s.UpdateProjectStatus(p.ID, core.ProjectStatusRunning))

	fetched, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, core.ProjectStatusRunning, fetched.Status)
}

func TestUpdateProjectStatusRejectsInvalidTransition(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)

	err := s.UpdateProjectStatus(p.ID, core.ProjectStatusCompleted)
	require.Error(t, err)
	var invalid *core.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestGetSoleProject(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)

	sole, err := s.GetSoleProject()
	require.NoError(t, err)
	require.Equal(t, p.ID, sole.ID)
}
