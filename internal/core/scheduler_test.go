package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSchedulerStore is an in-memory SchedulerStore for unit tests.
type fakeSchedulerStore struct {
	phases map[string][]Phase // projectID -> phases
	tasks  map[string][]Task  // phaseID -> all tasks
	ready  map[string][]Task  // phaseID -> tasks with met deps
}

func (f *fakeSchedulerStore) GetPhasesByProject(projectID string) ([]Phase, error) {
	return f.phases[projectID], nil
}

func (f *fakeSchedulerStore) GetTasksByPhase(phaseID string) ([]Task, error) {
	return f.tasks[phaseID], nil
}

func (f *fakeSchedulerStore) GetPendingTasksWithMetDeps(phaseID string) ([]Task, error) {
	return f.ready[phaseID], nil
}

func TestNextCodingTaskSkipsUnreadyPhase(t *testing.T) {
	store := &fakeSchedulerStore{
		phases: map[string][]Phase{
			"p1": {
				{ID: "phase-1", ProjectID: "p1", Sequence: 1, Status: PhaseStatusPending},
				{ID: "phase-2", ProjectID: "p1", Sequence: 2, Status: PhaseStatusInProgress},
			},
		},
		ready: map[string][]Task{
			"phase-2": {{ID: "t1", TaskType: TaskTypeCoding}},
		},
	}
	s := NewScheduler(store)

	task, err := s.NextCodingTask("p1")
	require.NoError(t, err)
	require.Nil(t, task, "phase-2 depends on phase-1 which is not yet complete/skipped")
}

func TestNextCodingTaskReturnsReadyTask(t *testing.T) {
	store := &fakeSchedulerStore{
		phases: map[string][]Phase{
			"p1": {{ID: "phase-1", ProjectID: "p1", Sequence: 1, Status: PhaseStatusInProgress}},
		},
		ready: map[string][]Task{
			"phase-1": {{ID: "t1", TaskType: TaskTypeReview}, {ID: "t2", TaskType: TaskTypeCoding}},
		},
	}
	s := NewScheduler(store)

	task, err := s.NextCodingTask("p1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "t2", task.ID)
}

func TestAllCompleteRequiresEveryPhaseTerminal(t *testing.T) {
	store := &fakeSchedulerStore{
		phases: map[string][]Phase{
			"p1": {
				{ID: "phase-1", Sequence: 1, Status: PhaseStatusCompleted},
				{ID: "phase-2", Sequence: 2, Status: PhaseStatusSkipped},
			},
		},
	}
	s := NewScheduler(store)
	done, err := s.AllComplete("p1")
	require.NoError(t, err)
	assert.True(t, done)

	store.phases["p1"][1].Status = PhaseStatusInProgress
	done, err = s.AllComplete("p1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestIsSecurityRelevant(t *testing.T) {
	s := NewScheduler(&fakeSchedulerStore{})
	assert.True(t, s.IsSecurityRelevant(Task{Name: "Add JWT auth middleware"}))
	assert.True(t, s.IsSecurityRelevant(Task{Description: "rotate the API key storage"}))
	assert.False(t, s.IsSecurityRelevant(Task{Name: "Fix typo in README"}))
}

func TestHasSchedulableFalseWhenNothingReady(t *testing.T) {
	store := &fakeSchedulerStore{
		phases: map[string][]Phase{"p1": {{ID: "phase-1", ProjectID: "p1", Sequence: 1, Status: PhaseStatusInProgress}}},
	}
	s := NewScheduler(store)
	has, err := s.HasSchedulable("p1")
	require.NoError(t, err)
	assert.False(t, has)
}
