// Package session spawns and supervises worker processes (Claude Code CLI
// invocations) inside terminal-multiplexer panes, and reports their
// completion back to the durable Store.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// SessionStore is the narrow Store surface the Manager needs. Defined here
// (rather than depending on internal/store directly) so internal/session
// has no dependency on the storage layer, the same separation
// internal/core.SchedulerStore draws for the Scheduler.
type SessionStore interface {
	CreateSession(core.Session) (core.Session, error)
	GetSession(id string) (core.Session, error)
	GetActiveSessions() ([]core.Session, error)
	UpdateSessionStatus(id string, status core.SessionStatus) error
	UpdateSessionStarted(id string, pane string, pid int) error
	UpdateSessionCompleted(id string, exitCode int) error
	UpdateSessionError(id string, errorContext string) error
}

// Config holds Manager tuning knobs.
type Config struct {
	ProjectDir       string
	ProjectName      string
	WorkerCommand    string
	LogsDir          string
	PollInterval     time.Duration
	GracefulKillWait time.Duration
}

// DefaultConfig returns sensible defaults for fields the caller does not
// set explicitly.
func DefaultConfig() Config {
	return Config{
		WorkerCommand:    "claude -p --output-format text",
		PollInterval:     2 * time.Second,
		GracefulKillWait: 10 * time.Second,
	}
}

var taskTypeToSessionType = map[core.TaskType]core.SessionType{
	core.TaskTypeCoding:         core.SessionTypeCoding,
	core.TaskTypeReview:         core.SessionTypeReview,
	core.TaskTypeSecurityReview: core.SessionTypeSecurityReview,
	core.TaskTypeDeployment:     core.SessionTypeDeployment,
	core.TaskTypeVerification:   core.SessionTypeVerification,
	core.TaskTypePlanning:       core.SessionTypePlanning,
}

// activeSlot tracks what a running session occupies: which pane slot, and
// which task it is working on (the Engine needs the latter to map a
// CheckActive result back to a Task).
type activeSlot struct {
	slot   SlotKind
	taskID string
}

// Manager governs worker session lifecycle in tmux panes: spawning,
// liveness checks, and kill. Shape (mutex-guarded map, Config/DefaultConfig,
// Get/Cleanup/ListActive) is kept from the teacher's internal/session
// Spawner; the body spawns real OS processes in tmux panes instead of
// in-process LLM subagents.
type Manager struct {
	mu     sync.RWMutex
	tmux   Multiplexer
	store  SessionStore
	cfg    Config
	active map[string]activeSlot // sessionID -> slot + task
}

// NewManager constructs a Manager bound to a Multiplexer and a Store.
func NewManager(tmux Multiplexer, store SessionStore, cfg Config) *Manager {
	if cfg.WorkerCommand == "" {
		cfg.WorkerCommand = DefaultConfig().WorkerCommand
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.GracefulKillWait == 0 {
		cfg.GracefulKillWait = DefaultConfig().GracefulKillWait
	}
	return &Manager{
		tmux:   tmux,
		store:  store,
		cfg:    cfg,
		active: make(map[string]activeSlot),
	}
}

// Spawn starts a worker process for task, piping briefPath in as stdin and
// tee-ing combined output to a per-session log file, tagged with the
// "exit code: N" trailer convention the reference worker-invocation shell
// command uses so CheckActive can recover the exit status from captured
// pane output alone.
func (m *Manager) Spawn(ctx context.Context, task core.Task, briefPath string) (core.Session, error) {
	sessionType, ok := taskTypeToSessionType[task.TaskType]
	if !ok {
		sessionType = core.SessionTypeCoding
	}
	slot := slotForSessionType(sessionType)

	if err := m.tmux.EnsureSession(ctx); err != nil {
		return core.Session{}, fmt.Errorf("failed to ensure tmux session: %w", err)
	}
	if err := m.tmux.AllocatePane(slot); err != nil {
		return core.Session{}, fmt.Errorf("failed to allocate pane: %w", err)
	}

	sessionID := uuid.NewString()
	logPath := filepath.Join(m.cfg.LogsDir, fmt.Sprintf("session-%s.log", sessionID))

	command := fmt.Sprintf(
		"{ %s --project-dir %s < %s 2>&1; echo 'exit code:' $?; } | tee %s",
		m.cfg.WorkerCommand, m.cfg.ProjectDir, briefPath, logPath,
	)

	sess, err := m.store.CreateSession(core.Session{
		ID:          sessionID,
		TaskID:      task.ID,
		SessionType: sessionType,
		Pane:        slot.String(),
		LogPath:     logPath,
	})
	if err != nil {
		return core.Session{}, fmt.Errorf("failed to create session record: %w", err)
	}

	if err := m.tmux.Send(ctx, slot, command); err != nil {
		_ = m.store.UpdateSessionError(sess.ID, err.Error())
		return core.Session{}, fmt.Errorf("failed to send worker command: %w", err)
	}

	pid, _ := m.tmux.PanePID(ctx, slot)
	if err := m.store.UpdateSessionStarted(sess.ID, slot.String(), pid); err != nil {
		return core.Session{}, err
	}

	m.mu.Lock()
	m.active[sess.ID] = activeSlot{slot: slot, taskID: task.ID}
	m.mu.Unlock()

	sess.Status = core.SessionStatusRunning
	sess.PID = pid
	return sess, nil
}

// SessionCheckResult reports whether a worker's pane process has exited,
// and its exit code if so.
type SessionCheckResult struct {
	SessionID string
	TaskID    string
	Exited    bool
	ExitCode  int
	Stderr    string
}

// CheckActive polls every session this Manager is tracking as active and
// reports which have exited. A session that exited is removed from
// tracking and has its terminal status persisted.
func (m *Manager) CheckActive(ctx context.Context) ([]SessionCheckResult, error) {
	m.mu.RLock()
	snapshot := make(map[string]activeSlot, len(m.active))
	for id, entry := range m.active {
		snapshot[id] = entry
	}
	m.mu.RUnlock()

	var results []SessionCheckResult
	for sessionID, entry := range snapshot {
		result, err := m.checkOne(ctx, sessionID, entry)
		if err != nil {
			m.mu.Lock()
			delete(m.active, sessionID)
			m.mu.Unlock()
			continue
		}
		results = append(results, result)
		if result.Exited {
			m.mu.Lock()
			delete(m.active, sessionID)
			m.mu.Unlock()
			if err := m.store.UpdateSessionCompleted(sessionID, result.ExitCode); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (m *Manager) checkOne(ctx context.Context, sessionID string, entry activeSlot) (SessionCheckResult, error) {
	busy, err := m.tmux.IsBusy(ctx, entry.slot)
	if err != nil {
		return SessionCheckResult{}, err
	}
	if busy {
		return SessionCheckResult{SessionID: sessionID, TaskID: entry.taskID, Exited: false}, nil
	}

	output, err := m.tmux.CaptureOutput(ctx, entry.slot, 20)
	if err != nil {
		return SessionCheckResult{}, err
	}
	return SessionCheckResult{
		SessionID: sessionID,
		TaskID:    entry.taskID,
		Exited:    true,
		ExitCode:  parseExitCode(output),
	}, nil
}

// parseExitCode scans output, most recent line first, for the
// "exit code: N" trailer the worker invocation's shell command appends.
func parseExitCode(output string) int {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "exit code:") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			break
		}
		code, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			break
		}
		return code
	}
	return 0
}

// KillSession sends Ctrl-C to a session's pane, waits GracefulKillWaitSecs
// (skipped when force is set), and then escalates to SIGKILL against the
// pane's PID if the pane is still busy. An improvement over the reference
// implementation, which always sends a bare Ctrl-C regardless of whether
// the process actually stops.
func (m *Manager) KillSession(ctx context.Context, sessionID string, force bool) error {
	m.mu.RLock()
	entry, ok := m.active[sessionID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session not active: %s", sessionID)
	}

	if err := m.killSlot(ctx, entry.slot, force); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.active, sessionID)
	m.mu.Unlock()

	return m.store.UpdateSessionStatus(sessionID, core.SessionStatusKilled)
}

// KillByRecord kills a session this Manager never tracked in its own active
// map - the common case for `tc kill`, which runs as a process separate
// from the `tc run` process that actually spawned the session, and so can
// only recover the pane slot from the persisted Session row's Pane column.
func (m *Manager) KillByRecord(ctx context.Context, sess core.Session, force bool) error {
	slot, ok := ParseSlotKind(sess.Pane)
	if !ok {
		return fmt.Errorf("session %s has no recoverable pane slot: %q", sess.ID, sess.Pane)
	}
	if err := m.killSlot(ctx, slot, force); err != nil {
		return err
	}
	return m.store.UpdateSessionStatus(sess.ID, core.SessionStatusKilled)
}

// killSlot sends Ctrl-C to slot, waits out GracefulKillWaitSecs unless force
// is set, then sends SIGKILL to the pane's PID if the pane is still busy.
func (m *Manager) killSlot(ctx context.Context, slot SlotKind, force bool) error {
	if err := m.tmux.SendKeys(ctx, slot, "C-c"); err != nil {
		return fmt.Errorf("failed to send interrupt: %w", err)
	}

	if !force {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.GracefulKillWait):
		}
	}

	stillBusy, err := m.tmux.IsBusy(ctx, slot)
	if err == nil && stillBusy {
		pid, err := m.tmux.PanePID(ctx, slot)
		if err == nil && pid > 0 {
			_ = killPID(pid)
		}
	}
	return nil
}

// HasActiveCoding reports whether a coding-slot worker is currently running.
func (m *Manager) HasActiveCoding() bool {
	return m.hasActiveSlot(SlotCoding)
}

// HasActiveReview reports whether a review-slot worker is currently running.
func (m *Manager) HasActiveReview() bool {
	return m.hasActiveSlot(SlotReview)
}

func (m *Manager) hasActiveSlot(slot SlotKind) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.active {
		if s.slot == slot {
			return true
		}
	}
	return false
}

// Get returns whether a session is currently tracked as active and, if so,
// its pane slot.
func (m *Manager) Get(sessionID string) (SlotKind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.active[sessionID]
	return entry.slot, ok
}

// ListActive returns the IDs of every session this Manager is tracking as
// still running.
func (m *Manager) ListActive() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// Cleanup reconciles the in-memory active set against the Store's view of
// active sessions, dropping anything the Store no longer considers active
// (e.g. after a crash-restart where the tmux pane outlived the process).
func (m *Manager) Cleanup() (int, error) {
	stored, err := m.store.GetActiveSessions()
	if err != nil {
		return 0, err
	}
	storedIDs := make(map[string]bool, len(stored))
	for _, s := range stored {
		storedIDs[s.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id := range m.active {
		if !storedIDs[id] {
			delete(m.active, id)
			removed++
		}
	}
	return removed, nil
}
