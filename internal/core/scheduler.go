package core

import "regexp"

// securityKeywords matches task names/descriptions that plausibly touch a
// security-sensitive concern, triggering an automatic security review.
// Ported from the reference orchestrator's scheduler heuristic.
var securityKeywords = regexp.MustCompile(
	`(?i)auth|login|password|credential|secret|token|jwt|oauth|session|` +
		`permission|api[_\s-]?key|encrypt|decrypt|certificate|ssl|tls|csrf|` +
		`xss|injection|security|vulnerable|sanitiz`)

// SchedulerStore is the narrow read surface the Scheduler needs from the
// durable Store. Defined here (rather than depended on from internal/store)
// so internal/core has no dependency on the storage layer.
type SchedulerStore interface {
	GetPhasesByProject(projectID string) ([]Phase, error)
	GetTasksByPhase(phaseID string) ([]Task, error)
	GetPendingTasksWithMetDeps(phaseID string) ([]Task, error)
}

// Scheduler answers "what can run next" questions over a Project's plan. It
// holds no state of its own - every call re-reads the Store.
type Scheduler struct {
	store SchedulerStore
}

// NewScheduler constructs a Scheduler bound to the given store.
func NewScheduler(store SchedulerStore) *Scheduler {
	return &Scheduler{store: store}
}

// NextCodingTask returns the next schedulable coding task in the first phase
// that is in progress (or ready to start), or nil if none is ready.
func (s *Scheduler) NextCodingTask(projectID string) (*Task, error) {
	return s.nextTaskOfKind(projectID, func(t Task) bool {
		return t.TaskType == TaskTypeCoding || t.TaskType == TaskTypeDeployment || t.TaskType == TaskTypeVerification
	})
}

// NextReviewTask returns the oldest Queued review/security-review task
// (phase sequence, then task sequence), or nil if none is queued.
func (s *Scheduler) NextReviewTask(projectID string) (*Task, error) {
	phases, err := s.store.GetPhasesByProject(projectID)
	if err != nil {
		return nil, err
	}
	for _, phase := range phases {
		tasks, err := s.store.GetTasksByPhase(phase.ID)
		if err != nil {
			return nil, err
		}
		for i := range tasks {
			if tasks[i].Status == TaskStatusQueued &&
				(tasks[i].TaskType == TaskTypeReview || tasks[i].TaskType == TaskTypeSecurityReview) {
				return &tasks[i], nil
			}
		}
	}
	return nil, nil
}

func (s *Scheduler) nextTaskOfKind(projectID string, match func(Task) bool) (*Task, error) {
	phases, err := s.store.GetPhasesByProject(projectID)
	if err != nil {
		return nil, err
	}

	for _, phase := range phases {
		if phase.Status != PhaseStatusInProgress && phase.Status != PhaseStatusPending {
			continue
		}
		ready, err := s.phaseReady(phases, phase)
		if err != nil {
			return nil, err
		}
		if !ready {
			continue
		}

		candidates, err := s.store.GetPendingTasksWithMetDeps(phase.ID)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			if match(candidates[i]) {
				return &candidates[i], nil
			}
		}
	}
	return nil, nil
}

// HasSchedulable reports whether any coding or review task is ready to run.
func (s *Scheduler) HasSchedulable(projectID string) (bool, error) {
	coding, err := s.NextCodingTask(projectID)
	if err != nil {
		return false, err
	}
	if coding != nil {
		return true, nil
	}
	review, err := s.NextReviewTask(projectID)
	if err != nil {
		return false, err
	}
	return review != nil, nil
}

// AllComplete reports whether every phase and task in the project has
// reached a terminal status (Completed or Skipped).
func (s *Scheduler) AllComplete(projectID string) (bool, error) {
	phases, err := s.store.GetPhasesByProject(projectID)
	if err != nil {
		return false, err
	}
	for _, phase := range phases {
		if phase.Status != PhaseStatusCompleted && phase.Status != PhaseStatusSkipped {
			return false, nil
		}
		tasks, err := s.store.GetTasksByPhase(phase.ID)
		if err != nil {
			return false, err
		}
		for _, t := range tasks {
			if t.Status != TaskStatusCompleted && t.Status != TaskStatusSkipped {
				return false, nil
			}
		}
	}
	return true, nil
}

// DependenciesMet reports whether every dependency of a task has reached a
// terminal, successful status.
func (s *Scheduler) DependenciesMet(phaseID string, taskID string) (bool, error) {
	pending, err := s.store.GetPendingTasksWithMetDeps(phaseID)
	if err != nil {
		return false, err
	}
	for _, t := range pending {
		if t.ID == taskID {
			return true, nil
		}
	}
	return false, nil
}

// IsSecurityRelevant reports whether a task's name or description matches
// the security-keyword heuristic, triggering an automatic security review
// alongside the normal code review.
func (s *Scheduler) IsSecurityRelevant(task Task) bool {
	return securityKeywords.MatchString(task.Name) || securityKeywords.MatchString(task.Description)
}

// phaseReady reports whether every phase with a lower sequence number than
// `phase` has reached Completed or Skipped.
func (s *Scheduler) phaseReady(all []Phase, phase Phase) (bool, error) {
	for _, other := range all {
		if other.ProjectID != phase.ProjectID || other.Sequence >= phase.Sequence {
			continue
		}
		if other.Status != PhaseStatusCompleted && other.Status != PhaseStatusSkipped {
			return false, nil
		}
	}
	return true, nil
}
