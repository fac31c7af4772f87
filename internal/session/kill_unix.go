package session

import (
	"os"
	"syscall"
)

// killPID sends SIGKILL to a process by PID. Used as the escalation when a
// pane is still busy after Ctrl-C (and, unless forced, after
// GracefulKillWaitSecs).
func killPID(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGKILL)
}
