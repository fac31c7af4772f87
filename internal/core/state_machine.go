package core

// validTaskTransitions enumerates every legal Task status transition.
// Ported from the reference orchestrator's state machine.
var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusQueued, TaskStatusSkipped},
	TaskStatusQueued:    {TaskStatusRunning, TaskStatusSkipped},
	TaskStatusRunning:   {TaskStatusCompleted, TaskStatusFailed},
	TaskStatusFailed:    {TaskStatusRetrying, TaskStatusPaused, TaskStatusSkipped},
	TaskStatusRetrying:  {TaskStatusRunning},
	TaskStatusPaused:    {TaskStatusQueued, TaskStatusSkipped},
	TaskStatusCompleted: {},
	TaskStatusSkipped:   {},
}

var validProjectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusInitialized: {ProjectStatusPlanning, ProjectStatusFailed},
	ProjectStatusPlanning:    {ProjectStatusPlanned, ProjectStatusFailed},
	ProjectStatusPlanned:     {ProjectStatusRunning, ProjectStatusFailed},
	ProjectStatusRunning:     {ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusFailed},
	ProjectStatusPaused:      {ProjectStatusRunning, ProjectStatusFailed},
	ProjectStatusCompleted:   {},
	ProjectStatusFailed:      {},
}

var validPhaseTransitions = map[PhaseStatus][]PhaseStatus{
	PhaseStatusPending:    {PhaseStatusInProgress, PhaseStatusSkipped},
	PhaseStatusInProgress: {PhaseStatusCompleted, PhaseStatusFailed, PhaseStatusSkipped},
	PhaseStatusCompleted:  {},
	PhaseStatusFailed:     {PhaseStatusInProgress},
	PhaseStatusSkipped:    {},
}

var validSessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusPending:   {SessionStatusStarting, SessionStatusFailed},
	SessionStatusStarting:  {SessionStatusRunning, SessionStatusFailed},
	SessionStatusRunning:   {SessionStatusCompleted, SessionStatusFailed, SessionStatusKilled, SessionStatusTimedOut},
	SessionStatusCompleted: {},
	SessionStatusFailed:    {},
	SessionStatusKilled:    {},
	SessionStatusTimedOut:  {},
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ValidateTaskTransition returns an *InvalidTransitionError if moving a Task
// from `from` to `to` is not permitted.
func ValidateTaskTransition(from, to TaskStatus) error {
	allowed, ok := validTaskTransitions[from]
	if !ok || !contains(allowed, to) {
		return &InvalidTransitionError{Entity: "task", From: string(from), To: string(to)}
	}
	return nil
}

// ValidateProjectTransition returns an *InvalidTransitionError if moving a
// Project from `from` to `to` is not permitted.
func ValidateProjectTransition(from, to ProjectStatus) error {
	allowed, ok := validProjectTransitions[from]
	if !ok || !contains(allowed, to) {
		return &InvalidTransitionError{Entity: "project", From: string(from), To: string(to)}
	}
	return nil
}

// ValidatePhaseTransition returns an *InvalidTransitionError if moving a
// Phase from `from` to `to` is not permitted.
func ValidatePhaseTransition(from, to PhaseStatus) error {
	allowed, ok := validPhaseTransitions[from]
	if !ok || !contains(allowed, to) {
		return &InvalidTransitionError{Entity: "phase", From: string(from), To: string(to)}
	}
	return nil
}

// ValidateSessionTransition returns an *InvalidTransitionError if moving a
// Session from `from` to `to` is not permitted.
func ValidateSessionTransition(from, to SessionStatus) error {
	allowed, ok := validSessionTransitions[from]
	if !ok || !contains(allowed, to) {
		return &InvalidTransitionError{Entity: "session", From: string(from), To: string(to)}
	}
	return nil
}
