package core

import "time"

// Project is the single top-level unit of work this orchestrator drives.
// Exactly one Project exists per .tc directory (spec Non-goal: no
// multi-project concurrency).
type Project struct {
	ID            string
	Name          string
	ProjectDir    string
	PRDPath       string
	BootstrapPath string // empty if no bootstrap.md was supplied
	Status        ProjectStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Phase is an ordered, named slice of a Project's plan. Phases execute in
// sequence order; a phase only becomes eligible once every lower-sequence
// phase is Completed or Skipped.
type Phase struct {
	ID          string
	ProjectID   string
	Name        string
	Sequence    int
	Status      PhaseStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Task is a single unit of work assigned to one worker invocation.
type Task struct {
	ID           string
	PhaseID      string
	Name         string
	Description  string
	Sequence     int
	Status       TaskStatus
	TaskType     TaskType
	RetryCount   int
	MaxRetries   int
	ErrorContext string
	BriefPath    string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TaskDependency is a hard dependency edge: Task TaskID cannot become
// schedulable until Task DependsOnID is Completed (or Skipped).
type TaskDependency struct {
	TaskID      string
	DependsOnID string
}

// Session is one worker process invocation bound to a Task.
type Session struct {
	ID            string
	TaskID        string
	SessionType   SessionType
	Status        SessionStatus
	Pane          string // opaque slot handle rendered as a string for persistence
	PID           int
	LogPath       string
	ExitCode      *int
	DurationSecs  *int
	ErrorContext  string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// Event is an immutable, append-only record of something that happened to a
// Project, Phase, Task, or Session.
type Event struct {
	ID         int64
	ProjectID  string
	EntityType string // "project" | "phase" | "task" | "session"
	EntityID   string
	EventType  EventType
	OldValue   string
	NewValue   string
	Metadata   string // JSON-encoded, shape depends on EventType
	CreatedAt  time.Time
}

// BootstrapCheck is one persisted result of running a bootstrap verification
// check against a Project.
type BootstrapCheck struct {
	ID        string
	ProjectID string
	Name      string
	CheckType string
	Passed    bool
	Stdout    string
	Stderr    string
	ExitCode  int
	CreatedAt time.Time
}
