package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func seedPhase(t *testing.T, s *Store, projectID string, seq int) core.Phase {
	t.Helper()
	ph, err := s.CreatePhase(core.Phase{ProjectID: projectID, Name: "phase", Sequence: seq})
	require.NoError(t, err)
	return ph
}

func TestCreateAndGetPhase(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)

	require.Equal(t, core.PhaseStatusPending, ph.Status)

	fetched, err := s.GetPhase(ph.ID)
	require.NoError(t, err)
	require.Equal(t, ph.Name, fetched.Name)
}

func TestGetPhasesByProjectOrdersBySequence(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	seedPhase(t, s, p.ID, 1)
	seedPhase(t, s, p.ID, 0)

	phases, err := s.GetPhasesByProject(p.ID)
	require.NoError(t, err)
	require.Len(t, phases, 2)
	require.Equal(t, 0, phases[0].Sequence)
	require.Equal(t, 1, phases[1].Sequence)
}

func TestUpdatePhaseStatusStampsTimestamps(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)

	require.NoError(t, s.UpdatePhaseStatus(ph.ID, core.PhaseStatusInProgress))
	inProgress, err := s.GetPhase(ph.ID)
	require.NoError(t, err)
	require.NotNil(t, inProgress.StartedAt)
	require.Nil(t, inProgress.CompletedAt)

	require.NoError(t, s.UpdatePhaseStatus(ph.ID, core.PhaseStatusCompleted))
	completed, err := s.GetPhase(ph.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
}

func TestUpdatePhaseStatusRejectsInvalidTransition(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)

	err := s.UpdatePhaseStatus(ph.ID, core.PhaseStatusCompleted)
	require.Error(t, err)

	unchanged, getErr := s.GetPhase(ph.ID)
	require.NoError(t, getErr)
	require.Equal(t, core.PhaseStatusPending, unchanged.Status)
}
