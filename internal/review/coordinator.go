// Package review schedules follow-on review and security-review tasks once
// a coding task completes, and extracts what changed from its completion
// event so a review brief can be rendered without re-reading the worker's
// raw output.
package review

import (
	"encoding/json"
	"fmt"

	"terminal-coder/internal/core"
)

// Store is the subset of *store.Store the coordinator needs.
type Store interface {
	GetPhase(id string) (core.Phase, error)
	GetTasksByPhase(phaseID string) ([]core.Task, error)
	CreateTask(t core.Task) (core.Task, error)
	AddTaskDependency(taskID, dependsOnID string) error
	UpdateTaskStatus(id string, status core.TaskStatus) error
	CreateEvent(evt core.Event) (core.Event, error)
	GetEventsByEntity(entityType, entityID string) ([]core.Event, error)
}

// Coordinator schedules review work after a coding task finishes.
type Coordinator struct {
	store Store
}

// NewCoordinator builds a Coordinator over the given Store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// nextSequence places a follow-on task right after every task already
// scheduled in the same phase, mirroring the reference's max(sequence)+1.
func (c *Coordinator) nextSequence(phaseID string) (int, error) {
	tasks, err := c.store.GetTasksByPhase(phaseID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, t := range tasks {
		if t.Sequence > max {
			max = t.Sequence
		}
	}
	return max + 1, nil
}

// ScheduleReview creates a Review task depending on completedTask, queued
// immediately since its sole dependency is already Completed.
func (c *Coordinator) ScheduleReview(completedTask core.Task) (core.Task, error) {
	return c.schedule(completedTask, core.TaskTypeReview,
		"Review: "+completedTask.Name,
		"Code review for: "+completedTask.Name,
		"Review scheduled for "+completedTask.Name)
}

// ScheduleSecurityReview creates a SecurityReview task depending on
// completedTask, for a task the scheduler flagged as security-relevant.
func (c *Coordinator) ScheduleSecurityReview(completedTask core.Task, concern string) (core.Task, error) {
	return c.schedule(completedTask, core.TaskTypeSecurityReview,
		"Security Review: "+completedTask.Name,
		fmt.Sprintf("Security review for: %s (concern: %s)", completedTask.Name, concern),
		"Security review scheduled for "+completedTask.Name)
}

func (c *Coordinator) schedule(completedTask core.Task, taskType core.TaskType, name, description, eventMessage string) (core.Task, error) {
	seq, err := c.nextSequence(completedTask.PhaseID)
	if err != nil {
		return core.Task{}, err
	}

	reviewTask, err := c.store.CreateTask(core.Task{
		PhaseID:     completedTask.PhaseID,
		Name:        name,
		Description: description,
		Sequence:    seq,
		TaskType:    taskType,
	})
	if err != nil {
		return core.Task{}, err
	}

	if err := c.store.AddTaskDependency(reviewTask.ID, completedTask.ID); err != nil {
		return core.Task{}, err
	}
	if err := c.store.UpdateTaskStatus(reviewTask.ID, core.TaskStatusQueued); err != nil {
		return core.Task{}, err
	}

	phase, err := c.store.GetPhase(completedTask.PhaseID)
	if err != nil {
		return core.Task{}, err
	}
	if _, err := c.store.CreateEvent(core.Event{
		ProjectID:  phase.ProjectID,
		EntityType: "task",
		EntityID:   reviewTask.ID,
		EventType:  core.EventTypeReviewScheduled,
		NewValue:   eventMessage,
	}); err != nil {
		return core.Task{}, err
	}

	reviewTask.Status = core.TaskStatusQueued
	return reviewTask, nil
}

// CompletionMetadata is the typed shape of a tc_report_completion event's
// metadata, parsed up front instead of substring-matched. Spec §9 flags the
// original's "files_changed" in event.metadata substring check plus a bare
// json.loads as the fragile approach this replaces: any event whose
// metadata happens to contain that substring (a log message quoting it, for
// instance) would have matched there. Unmarshaling into this struct and
// checking the decode error is the fix.
type CompletionMetadata struct {
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed"`
	TestResults  string   `json:"test_results"`
}

// GetFilesChanged reads the files changed list off the most recent
// ReportCompletion event recorded against task, newest first.
func (c *Coordinator) GetFilesChanged(task core.Task) ([]string, error) {
	events, err := c.store.GetEventsByEntity("task", task.ID)
	if err != nil {
		return nil, err
	}

	for i := len(events) - 1; i >= 0; i-- {
		evt := events[i]
		if evt.EventType != core.EventTypeStatusChanged || evt.Metadata == "" {
			continue
		}
		var meta CompletionMetadata
		if err := json.Unmarshal([]byte(evt.Metadata), &meta); err != nil {
			continue
		}
		if meta.FilesChanged != nil {
			return meta.FilesChanged, nil
		}
	}
	return nil, nil
}
