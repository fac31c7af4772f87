package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func seedTask(t *testing.T, s *Store, phaseID string, seq int) core.Task {
	t.Helper()
	tsk, err := s.CreateTask(core.Task{PhaseID: phaseID, Name: "task", Sequence: seq})
	require.NoError(t, err)
	return tsk
}

func TestCreateAndGetTask(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)

	require.Equal(t, core.TaskStatusPending, tsk.Status)
	require.Equal(t, core.TaskTypeCoding, tsk.TaskType)
	require.Equal(t, 1, tsk.MaxRetries)

	fetched, err := s.GetTask(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, tsk.Name, fetched.Name)
}

func TestGetTasksByPhaseOrdersBySequence(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	seedTask(t, s, ph.ID, 1)
	seedTask(t, s, ph.ID, 0)

	tasks, err := s.GetTasksByPhase(ph.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, 0, tasks[0].Sequence)
}

func TestGetPendingTasksWithMetDepsFiltersBlockedTasks(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)

	blocker := seedTask(t, s, ph.ID, 0)
	blocked := seedTask(t, s, ph.ID, 1)
	free := seedTask(t, s, ph.ID, 2)
	require.NoError(t, s.AddTaskDependency(blocked.ID, blocker.ID))

	ready, err := s.GetPendingTasksWithMetDeps(ph.ID)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, tsk := range ready {
		ids[tsk.ID] = true
	}
	require.True(t, ids[blocker.ID])
	require.True(t, ids[free.ID])
	require.False(t, ids[blocked.ID])

	require.NoError(t, s.UpdateTaskStatus(blocker.ID, core.TaskStatusQueued))
	require.NoError(t, s.UpdateTaskStatus(blocker.ID, core.TaskStatusRunning))
	require.NoError(t, s.UpdateTaskStatus(blocker.ID, core.TaskStatusCompleted))

	ready, err = s.GetPendingTasksWithMetDeps(ph.ID)
	require.NoError(t, err)
	ids = map[string]bool{}
	for _, tsk := range ready {
		ids[tsk.ID] = true
	}
	require.True(t, ids[blocked.ID])
}

func TestUpdateTaskErrorIncrementsRetryCount(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)

	require.NoError(t, s.UpdateTaskError(tsk.ID, "boom"))
	fetched, err := s.GetTask(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, core.TaskStatusFailed, fetched.Status)
	require.Equal(t, 1, fetched.RetryCount)
	require.Equal(t, "boom", fetched.ErrorContext)

	require.NoError(t, s.UpdateTaskError(tsk.ID, "boom again"))
	fetched, err = s.GetTask(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, 2, fetched.RetryCount)
}

func TestUpdateTaskBriefPath(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)

	require.NoError(t, s.UpdateTaskBriefPath(tsk.ID, ".tc/briefs/001.md"))
	fetched, err := s.GetTask(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, ".tc/briefs/001.md", fetched.BriefPath)
}

func TestGetTasksByStatus(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)
	seedTask(t, s, ph.ID, 1)

	require.NoError(t, s.UpdateTaskStatus(tsk.ID, core.TaskStatusQueued))
	require.NoError(t, s.UpdateTaskStatus(tsk.ID, core.TaskStatusRunning))

	running, err := s.GetTasksByStatus(p.ID, core.TaskStatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	require.Equal(t, tsk.ID, running[0].ID)
	require.NotNil(t, running[0].StartedAt)
}

func TestUpdateTaskStatusRejectsInvalidTransition(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)

	err := s.UpdateTaskStatus(tsk.ID, core.TaskStatusRunning)
	require.Error(t, err)

	unchanged, getErr := s.GetTask(tsk.ID)
	require.NoError(t, getErr)
	require.Equal(t, core.TaskStatusPending, unchanged.Status)
}
