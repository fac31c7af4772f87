// Package engine implements the main orchestration loop: poll active
// sessions, detect completion, dispatch the next schedulable review or
// coding task, and detect deadlock.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"terminal-coder/internal/core"
	"terminal-coder/internal/logging"
	"terminal-coder/internal/session"
)

// Store is the subset of *store.Store the Engine needs.
type Store interface {
	GetProject(id string) (core.Project, error)
	UpdateProjectStatus(id string, status core.ProjectStatus) error
	GetTask(id string) (core.Task, error)
	UpdateTaskStatus(id string, status core.TaskStatus) error
	UpdateTaskError(id string, errorContext string) error
	UpdateTaskBriefPath(id string, path string) error
	GetTasksByPhase(phaseID string) ([]core.Task, error)
	GetTasksByStatus(projectID string, status core.TaskStatus) ([]core.Task, error)
	GetPhasesByProject(projectID string) ([]core.Phase, error)
	UpdatePhaseStatus(id string, status core.PhaseStatus) error
	CreateEvent(evt core.Event) (core.Event, error)
}

// SessionManager is the subset of *session.Manager the Engine needs.
type SessionManager interface {
	Spawn(ctx context.Context, task core.Task, briefPath string) (core.Session, error)
	CheckActive(ctx context.Context) ([]session.SessionCheckResult, error)
	HasActiveCoding() bool
	HasActiveReview() bool
	ListActive() []string
}

// Scheduler is the subset of *core.Scheduler the Engine needs.
type Scheduler interface {
	NextCodingTask(projectID string) (*core.Task, error)
	NextReviewTask(projectID string) (*core.Task, error)
	HasSchedulable(projectID string) (bool, error)
	AllComplete(projectID string) (bool, error)
	IsSecurityRelevant(task core.Task) bool
}

// ReviewCoordinator is the subset of *review.Coordinator the Engine needs.
type ReviewCoordinator interface {
	ScheduleReview(completedTask core.Task) (core.Task, error)
	ScheduleSecurityReview(completedTask core.Task, concern string) (core.Task, error)
	GetFilesChanged(task core.Task) ([]string, error)
}

// RetryPolicy is the subset of *core.RetryPolicy the Engine needs.
type RetryPolicy interface {
	ShouldRetry(task core.Task) bool
	PrepareRetryContext(task core.Task, errorOutput string) string
}

// BriefProvider renders a task's worker brief. Implemented by
// internal/brief; engine only needs the rendered content, not its kind
// (coding/review/security/deploy) - that decision lives in the brief
// package based on task.TaskType.
type BriefProvider interface {
	RenderTaskBrief(task core.Task, retryContext string) (string, error)
}

// Config configures an Engine instance.
type Config struct {
	ProjectID    string
	ProjectDir   string
	PollInterval time.Duration
}

// Engine is the main orchestration loop.
type Engine struct {
	store     Store
	sessions  SessionManager
	scheduler Scheduler
	reviews   ReviewCoordinator
	retries   RetryPolicy
	briefs    BriefProvider
	eventBus  *core.EventBus
	cfg       Config

	mu      sync.Mutex
	paused  bool
	stopped bool
}

// New constructs an Engine. eventBus may be shared with other subsystems
// (`tc run --headless` subscribes a console logger to it).
func New(
	store Store,
	sessions SessionManager,
	scheduler Scheduler,
	reviews ReviewCoordinator,
	retries RetryPolicy,
	briefs BriefProvider,
	eventBus *core.EventBus,
	cfg Config,
) *Engine {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Engine{
		store:     store,
		sessions:  sessions,
		scheduler: scheduler,
		reviews:   reviews,
		retries:   retries,
		briefs:    briefs,
		eventBus:  eventBus,
		cfg:       cfg,
	}
}

// Run drives the orchestration loop until ctx is cancelled or Stop is
// called. A tick error fails the project and is returned.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusRunning); err != nil {
		return err
	}
	e.publish(core.EventTypeStatusChanged, "project", e.cfg.ProjectID, "Engine started")

	for !e.isStopped() {
		if err := e.tick(ctx); err != nil {
			logging.EngineError("engine tick failed: %v", err)
			_ = e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusFailed)
			e.publish(core.EventTypeError, "project", e.cfg.ProjectID, fmt.Sprintf("Engine error: %v", err))
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.PollInterval):
		}
	}
	return nil
}

// tick runs one iteration of the orchestration loop.
func (e *Engine) tick(ctx context.Context) error {
	if err := e.reconcilePauseState(); err != nil {
		return err
	}

	if err := e.checkSessions(ctx); err != nil {
		return err
	}

	allComplete, err := e.scheduler.AllComplete(e.cfg.ProjectID)
	if err != nil {
		return err
	}
	if allComplete {
		if err := e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusCompleted); err != nil {
			return err
		}
		e.publish(core.EventTypeStatusChanged, "project", e.cfg.ProjectID, "All tasks completed")
		e.setStopped()
		return nil
	}

	if e.isPaused() {
		return nil
	}

	if !e.sessions.HasActiveReview() {
		reviewTask, err := e.scheduler.NextReviewTask(e.cfg.ProjectID)
		if err != nil {
			return err
		}
		if reviewTask != nil {
			if err := e.dispatchTask(ctx, *reviewTask, ""); err != nil {
				return err
			}
		}
	}

	if !e.sessions.HasActiveCoding() {
		codingTask, err := e.scheduler.NextCodingTask(e.cfg.ProjectID)
		if err != nil {
			return err
		}
		if codingTask != nil {
			if err := e.startPhaseIfNeeded(*codingTask); err != nil {
				return err
			}
			if err := e.dispatchTask(ctx, *codingTask, ""); err != nil {
				return err
			}
		}
	}

	return e.checkDeadlock()
}

// reconcilePauseState reads the Project's persisted status so a pause or
// resume issued by `tc pause`/`tc resume` - a separate OS process flipping
// the row directly - takes effect on this Engine's next tick, per
// original_source/cli/commands/pause_cmd.py's DB-level request model.
func (e *Engine) reconcilePauseState() error {
	project, err := e.store.GetProject(e.cfg.ProjectID)
	if err != nil {
		return err
	}
	switch project.Status {
	case core.ProjectStatusPaused:
		e.setPaused(true)
	case core.ProjectStatusRunning:
		e.setPaused(false)
	}
	return nil
}

// checkSessions routes exited sessions to completion or failure handling.
func (e *Engine) checkSessions(ctx context.Context) error {
	results, err := e.sessions.CheckActive(ctx)
	if err != nil {
		return err
	}
	for _, result := range results {
		if !result.Exited {
			continue
		}
		task, err := e.store.GetTask(taskIDForSession(result))
		if err != nil {
			return err
		}
		if result.ExitCode == 0 {
			if err := e.handleCompletion(task); err != nil {
				return err
			}
		} else {
			if err := e.handleFailure(ctx, task, result.Stderr); err != nil {
				return err
			}
		}
	}
	return nil
}

// taskIDForSession is a seam so tests can stub session-to-task resolution;
// in production it returns the TaskID the Session Manager recorded on the
// SessionCheckResult when it spawned the session.
var taskIDForSession = func(result session.SessionCheckResult) string {
	return result.TaskID
}

func (e *Engine) handleCompletion(task core.Task) error {
	if err := e.store.UpdateTaskStatus(task.ID, core.TaskStatusCompleted); err != nil {
		return err
	}
	e.publish(core.EventTypeStatusChanged, "task", task.ID, "Task completed: "+task.Name)

	if err := e.checkPhaseCompletion(task); err != nil {
		return err
	}

	if task.TaskType != core.TaskTypeCoding {
		return nil
	}

	if _, err := e.reviews.GetFilesChanged(task); err != nil {
		return err
	}
	if _, err := e.reviews.ScheduleReview(task); err != nil {
		return err
	}
	if e.scheduler.IsSecurityRelevant(task) {
		if _, err := e.reviews.ScheduleSecurityReview(task, "security-relevant code detected"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) handleFailure(ctx context.Context, task core.Task, stderr string) error {
	if err := e.store.UpdateTaskError(task.ID, stderr); err != nil {
		return err
	}
	e.publish(core.EventTypeError, "task", task.ID, "Task failed: "+task.Name)

	refreshed, err := e.store.GetTask(task.ID)
	if err != nil {
		return err
	}

	if e.retries.ShouldRetry(refreshed) {
		if err := e.store.UpdateTaskStatus(task.ID, core.TaskStatusRetrying); err != nil {
			return err
		}
		e.publish(core.EventTypeRetried, "task", task.ID,
			fmt.Sprintf("Retrying task: %s (attempt %d)", task.Name, refreshed.RetryCount+1))

		retryContext := e.retries.PrepareRetryContext(refreshed, stderr)
		return e.dispatchTask(ctx, refreshed, retryContext)
	}

	if err := e.store.UpdateTaskStatus(task.ID, core.TaskStatusPaused); err != nil {
		return err
	}
	e.publish(core.EventTypePaused, "task", task.ID, "Task paused after max retries: "+task.Name)
	return nil
}

// dispatchTask marks task Running, resolves or renders its brief, and spawns
// a worker session for it. retryContext, if non-empty, is appended to a
// freshly rendered brief regardless of whether task.BriefPath was already
// set - a retried task always gets a brief that names what went wrong last
// time.
func (e *Engine) dispatchTask(ctx context.Context, task core.Task, retryContext string) error {
	if task.Status == core.TaskStatusPending {
		if err := e.store.UpdateTaskStatus(task.ID, core.TaskStatusQueued); err != nil {
			return err
		}
	}
	if err := e.store.UpdateTaskStatus(task.ID, core.TaskStatusRunning); err != nil {
		return err
	}

	briefPath := task.BriefPath
	if briefPath == "" || retryContext != "" {
		content, err := e.briefs.RenderTaskBrief(task, retryContext)
		if err != nil {
			return err
		}
		if briefPath == "" {
			briefPath = filepath.Join(e.cfg.ProjectDir, ".tc", "briefs", task.ID+"-brief.md")
		}
		if err := os.MkdirAll(filepath.Dir(briefPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(briefPath, []byte(content), 0644); err != nil {
			return err
		}
		if err := e.store.UpdateTaskBriefPath(task.ID, briefPath); err != nil {
			return err
		}
	}

	fresh, err := e.store.GetTask(task.ID)
	if err != nil {
		return err
	}
	if _, err := e.sessions.Spawn(ctx, fresh, briefPath); err != nil {
		return err
	}

	e.publish(core.EventTypeStatusChanged, "task", task.ID, "Task dispatched: "+task.Name)
	return nil
}

func (e *Engine) checkPhaseCompletion(task core.Task) error {
	phaseTasks, err := e.store.GetTasksByPhase(task.PhaseID)
	if err != nil {
		return err
	}
	for _, t := range phaseTasks {
		if t.Status != core.TaskStatusCompleted && t.Status != core.TaskStatusSkipped {
			return nil
		}
	}
	if err := e.store.UpdatePhaseStatus(task.PhaseID, core.PhaseStatusCompleted); err != nil {
		return err
	}
	e.publish(core.EventTypeStatusChanged, "phase", task.PhaseID, "Phase completed")
	return nil
}

func (e *Engine) startPhaseIfNeeded(task core.Task) error {
	phases, err := e.store.GetPhasesByProject(e.cfg.ProjectID)
	if err != nil {
		return err
	}
	for _, phase := range phases {
		if phase.ID == task.PhaseID && phase.Status == core.PhaseStatusPending {
			if err := e.store.UpdatePhaseStatus(phase.ID, core.PhaseStatusInProgress); err != nil {
				return err
			}
			e.publish(core.EventTypeStatusChanged, "phase", phase.ID, "Phase started: "+phase.Name)
			break
		}
	}
	return nil
}

func (e *Engine) checkDeadlock() error {
	if len(e.sessions.ListActive()) > 0 {
		return nil
	}
	schedulable, err := e.scheduler.HasSchedulable(e.cfg.ProjectID)
	if err != nil {
		return err
	}
	if schedulable {
		return nil
	}

	running, err := e.store.GetTasksByStatus(e.cfg.ProjectID, core.TaskStatusRunning)
	if err != nil {
		return err
	}
	retrying, err := e.store.GetTasksByStatus(e.cfg.ProjectID, core.TaskStatusRetrying)
	if err != nil {
		return err
	}
	if len(running) > 0 || len(retrying) > 0 {
		return nil
	}

	if err := e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusPaused); err != nil {
		return err
	}
	e.publish(core.EventTypePaused, "project", e.cfg.ProjectID,
		"Deadlock detected: no schedulable tasks and not all complete")
	e.setPaused(true)
	return nil
}

// Pause stops the Engine from scheduling new work; sessions already running
// finish normally. Persists the pause to the Store so it survives a
// restart and is visible to `tc status` run from a separate process.
func (e *Engine) Pause() {
	_ = e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusPaused)
	e.setPaused(true)
	e.publish(core.EventTypePaused, "project", e.cfg.ProjectID, "Engine paused")
}

// Resume clears a pause, including one set by deadlock detection.
func (e *Engine) Resume() {
	_ = e.store.UpdateProjectStatus(e.cfg.ProjectID, core.ProjectStatusRunning)
	e.setPaused(false)
	e.publish(core.EventTypeResumed, "project", e.cfg.ProjectID, "Engine resumed")
}

// Stop requests a cooperative shutdown; Run returns after finishing its
// current tick.
func (e *Engine) Stop() {
	e.setStopped()
	e.publish(core.EventTypeStatusChanged, "project", e.cfg.ProjectID, "Engine stopped")
}

func (e *Engine) IsPaused() bool  { return e.isPaused() }
func (e *Engine) IsStopped() bool { return e.isStopped() }

func (e *Engine) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Engine) setPaused(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = v
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Engine) setStopped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *Engine) publish(eventType core.EventType, entityType, entityID, message string) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(core.Event{
		ProjectID:  e.cfg.ProjectID,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Metadata:   message,
	})
}

