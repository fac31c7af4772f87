package core

// ProjectStatus is the lifecycle status of a Project.
type ProjectStatus string

const (
	ProjectStatusInitialized ProjectStatus = "initialized"
	ProjectStatusPlanning    ProjectStatus = "planning"
	ProjectStatusPlanned     ProjectStatus = "planned"
	ProjectStatusRunning     ProjectStatus = "running"
	ProjectStatusPaused      ProjectStatus = "paused"
	ProjectStatusCompleted   ProjectStatus = "completed"
	ProjectStatusFailed      ProjectStatus = "failed"
)

// PhaseStatus is the lifecycle status of a Phase.
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusFailed     PhaseStatus = "failed"
	PhaseStatusSkipped    PhaseStatus = "skipped"
)

// TaskStatus is the lifecycle status of a Task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusRetrying  TaskStatus = "retrying"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// TaskType distinguishes the kind of work a Task represents.
type TaskType string

const (
	TaskTypeCoding         TaskType = "coding"
	TaskTypeReview         TaskType = "review"
	TaskTypeSecurityReview TaskType = "security_review"
	TaskTypeDeployment     TaskType = "deployment"
	TaskTypeVerification   TaskType = "verification"
	TaskTypePlanning       TaskType = "planning"
)

// SessionStatus is the lifecycle status of a worker Session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusStarting  SessionStatus = "starting"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusKilled    SessionStatus = "killed"
	SessionStatusTimedOut  SessionStatus = "timed_out"
)

// SessionType mirrors TaskType for the worker spawned to handle it.
type SessionType string

const (
	SessionTypeCoding         SessionType = "coding"
	SessionTypeReview         SessionType = "review"
	SessionTypeSecurityReview SessionType = "security_review"
	SessionTypePlanning       SessionType = "planning"
	SessionTypeDeployment     SessionType = "deployment"
	SessionTypeVerification   SessionType = "verification"
)

// EventType classifies an Event recorded on the event bus and in the Store.
type EventType string

const (
	EventTypeStatusChanged           EventType = "status_changed"
	EventTypeCreated                 EventType = "created"
	EventTypeRetried                 EventType = "retried"
	EventTypeError                   EventType = "error"
	EventTypePaused                  EventType = "paused"
	EventTypeResumed                 EventType = "resumed"
	EventTypeReviewScheduled         EventType = "review_scheduled"
	EventTypeDeploymentStarted       EventType = "deployment_started"
	EventTypeVerificationResult      EventType = "verification_result"
	EventTypeHumanInputRequested     EventType = "human_input_requested"
)
