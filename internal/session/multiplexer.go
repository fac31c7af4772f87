package session

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"terminal-coder/internal/logging"
)

// Multiplexer is the narrow terminal-multiplexer surface the Manager needs:
// one persistent session with a fixed coding pane and review pane. Ported
// from the reference orchestrator's TmuxManager.
type Multiplexer interface {
	EnsureSession(ctx context.Context) error
	AllocatePane(slot SlotKind) error
	Send(ctx context.Context, slot SlotKind, command string) error
	SendKeys(ctx context.Context, slot SlotKind, keys string) error
	IsBusy(ctx context.Context, slot SlotKind) (bool, error)
	CaptureOutput(ctx context.Context, slot SlotKind, lines int) (string, error)
	PanePID(ctx context.Context, slot SlotKind) (int, error)
}

// TmuxMultiplexer shells out to the tmux binary via os/exec, the same
// direct-process-execution idiom the teacher's internal/tactile executors
// use for every external command: exec.CommandContext with a bound
// timeout, captured stdout/stderr.
type TmuxMultiplexer struct {
	binary      string
	sessionName string
	panes       map[SlotKind]string
	timeout     time.Duration
}

// NewTmuxMultiplexer constructs a multiplexer bound to one tmux session
// per project, named tc-<projectName> the way the reference TmuxManager
// does.
func NewTmuxMultiplexer(projectName string) *TmuxMultiplexer {
	return &TmuxMultiplexer{
		binary:      "tmux",
		sessionName: "tc-" + projectName,
		panes:       make(map[SlotKind]string),
		timeout:     10 * time.Second,
	}
}

// EnsureSession creates the tmux session with two panes (coding, review) if
// it does not already exist.
func (m *TmuxMultiplexer) EnsureSession(ctx context.Context) error {
	if m.sessionExists(ctx) {
		return m.discoverPanes(ctx)
	}

	if _, err := m.run(ctx, "new-session", "-d", "-s", m.sessionName); err != nil {
		return fmt.Errorf("failed to create tmux session %s: %w", m.sessionName, err)
	}
	if _, err := m.run(ctx, "split-window", "-t", m.sessionName, "-v"); err != nil {
		return fmt.Errorf("failed to split tmux window: %w", err)
	}
	return m.discoverPanes(ctx)
}

func (m *TmuxMultiplexer) sessionExists(ctx context.Context) bool {
	_, err := m.run(ctx, "has-session", "-t", m.sessionName)
	return err == nil
}

func (m *TmuxMultiplexer) discoverPanes(ctx context.Context) error {
	out, err := m.run(ctx, "list-panes", "-t", m.sessionName, "-F", "#{pane_index} #{pane_id}")
	if err != nil {
		return fmt.Errorf("failed to list tmux panes: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return fmt.Errorf("tmux session %s does not have 2 panes", m.sessionName)
	}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		paneID := fields[1]
		if i == 0 {
			m.panes[SlotCoding] = paneID
		} else if i == 1 {
			m.panes[SlotReview] = paneID
		}
	}
	return nil
}

// AllocatePane allocates nothing for tmux: both panes already exist from
// EnsureSession, so it only returns an error if EnsureSession found no pane
// for slot. It exists on the interface so fake multiplexers in tests can
// track allocation without a real tmux session.
func (m *TmuxMultiplexer) AllocatePane(slot SlotKind) error {
	if _, ok := m.panes[slot]; !ok {
		return fmt.Errorf("pane not available for slot %s", slot)
	}
	return nil
}

// Send types a shell command into a pane and presses Enter.
func (m *TmuxMultiplexer) Send(ctx context.Context, slot SlotKind, command string) error {
	paneID, err := m.pane(slot)
	if err != nil {
		return err
	}
	_, err = m.run(ctx, "send-keys", "-t", paneID, command, "Enter")
	return err
}

// SendKeys sends raw keys (e.g. "C-c") without a trailing Enter.
func (m *TmuxMultiplexer) SendKeys(ctx context.Context, slot SlotKind, keys string) error {
	paneID, err := m.pane(slot)
	if err != nil {
		return err
	}
	_, err = m.run(ctx, "send-keys", "-t", paneID, keys)
	return err
}

// IsBusy reports whether a pane's shell has a running child process,
// mirroring the reference implementation's pgrep-on-pane_pid check.
func (m *TmuxMultiplexer) IsBusy(ctx context.Context, slot SlotKind) (bool, error) {
	pid, err := m.PanePID(ctx, slot)
	if err != nil {
		return false, err
	}
	if pid <= 0 {
		return false, nil
	}
	_, err = exec.CommandContext(ctx, "pgrep", "-P", strconv.Itoa(pid)).Output()
	return err == nil, nil
}

// CaptureOutput returns the last `lines` lines of a pane's scrollback.
func (m *TmuxMultiplexer) CaptureOutput(ctx context.Context, slot SlotKind, lines int) (string, error) {
	paneID, err := m.pane(slot)
	if err != nil {
		return "", err
	}
	out, err := m.run(ctx, "capture-pane", "-t", paneID, "-p", "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return "", err
	}
	return out, nil
}

// PanePID returns the process ID of a pane's top-level shell.
func (m *TmuxMultiplexer) PanePID(ctx context.Context, slot SlotKind) (int, error) {
	paneID, err := m.pane(slot)
	if err != nil {
		return 0, err
	}
	out, err := m.run(ctx, "display-message", "-t", paneID, "-p", "#{pane_pid}")
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, nil
	}
	return pid, nil
}

func (m *TmuxMultiplexer) pane(slot SlotKind) (string, error) {
	paneID, ok := m.panes[slot]
	if !ok {
		return "", fmt.Errorf("no pane allocated for slot %s", slot)
	}
	return paneID, nil
}

func (m *TmuxMultiplexer) run(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, m.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		logging.SessionDebug("tmux %v failed: %v (stderr: %s)", args, err, stderr.String())
		return "", fmt.Errorf("tmux %v: %w", args, err)
	}
	return stdout.String(), nil
}
