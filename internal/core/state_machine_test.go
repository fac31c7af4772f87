package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTaskTransitionAllowed(t *testing.T) {
	require.NoError(t, ValidateTaskTransition(TaskStatusPending, TaskStatusQueued))
	require.NoError(t, ValidateTaskTransition(TaskStatusQueued, TaskStatusRunning))
	require.NoError(t, ValidateTaskTransition(TaskStatusRunning, TaskStatusCompleted))
	require.NoError(t, ValidateTaskTransition(TaskStatusFailed, TaskStatusRetrying))
	require.NoError(t, ValidateTaskTransition(TaskStatusRetrying, TaskStatusRunning))
}

func TestQueuedToSkipped(t *testing.T) {
	require.NoError(t, ValidateTaskTransition(TaskStatusQueued, TaskStatusSkipped))
}

func TestFailedToSkipped(t *testing.T) {
	require.NoError(t, ValidateTaskTransition(TaskStatusFailed, TaskStatusSkipped))
}

func TestPausedToSkipped(t *testing.T) {
	require.NoError(t, ValidateTaskTransition(TaskStatusPaused, TaskStatusSkipped))
}

func TestRunningToPausedRejected(t *testing.T) {
	require.Error(t, ValidateTaskTransition(TaskStatusRunning, TaskStatusPaused))
}

func TestQueuedToPendingRejected(t *testing.T) {
	require.Error(t, ValidateTaskTransition(TaskStatusQueued, TaskStatusPending))
}

func TestValidateTaskTransitionRejected(t *testing.T) {
	err := ValidateTaskTransition(TaskStatusCompleted, TaskStatusRunning)
	require.Error(t, err)
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, "task", ite.Entity)
}

func TestValidatePhaseTransition(t *testing.T) {
	require.NoError(t, ValidatePhaseTransition(PhaseStatusPending, PhaseStatusInProgress))
	require.Error(t, ValidatePhaseTransition(PhaseStatusCompleted, PhaseStatusPending))
}

func TestInProgressToSkipped(t *testing.T) {
	require.NoError(t, ValidatePhaseTransition(PhaseStatusInProgress, PhaseStatusSkipped))
}

func TestValidateProjectTransition(t *testing.T) {
	require.NoError(t, ValidateProjectTransition(ProjectStatusInitialized, ProjectStatusPlanning))
	require.NoError(t, ValidateProjectTransition(ProjectStatusRunning, ProjectStatusPaused))
	require.Error(t, ValidateProjectTransition(ProjectStatusInitialized, ProjectStatusRunning))
	require.Error(t, ValidateProjectTransition(ProjectStatusCompleted, ProjectStatusRunning))
}

func TestValidateSessionTransition(t *testing.T) {
	require.NoError(t, ValidateSessionTransition(SessionStatusRunning, SessionStatusKilled))
	require.Error(t, ValidateSessionTransition(SessionStatusKilled, SessionStatusRunning))
}

func TestPendingToFailed(t *testing.T) {
	require.NoError(t, ValidateSessionTransition(SessionStatusPending, SessionStatusFailed))
}

func TestUnknownFromStatusIsRejected(t *testing.T) {
	err := ValidateTaskTransition(TaskStatus("bogus"), TaskStatusQueued)
	require.Error(t, err)
}
