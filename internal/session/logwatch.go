package session

import (
	"bufio"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"terminal-coder/internal/logging"
)

// WatchLogExit watches a session's log file for writes and calls onExit as
// soon as the "exit code: N" trailer line appears, instead of waiting for
// the next CheckActive poll. If the filesystem watch cannot be established
// (e.g. a network filesystem that doesn't support inotify), it returns an
// error and the caller falls back to polling via CheckActive alone - the
// two paths converge on the same completion signal either way.
func WatchLogExit(logPath string, onExit func(exitCode int)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// The log file may not exist yet; ensure it so the watch has a target.
	if _, statErr := os.Stat(logPath); os.IsNotExist(statErr) {
		f, createErr := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY, 0644)
		if createErr != nil {
			watcher.Close()
			return nil, createErr
		}
		f.Close()
	}

	if err := watcher.Add(logPath); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if code, found := tailExitCode(logPath); found {
					onExit(code)
					return
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.SessionDebug("log watch error for %s: %v", logPath, watchErr)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// tailExitCode scans the last lines of a log file for the "exit code: N"
// trailer, the same convention parseExitCode reads from captured tmux
// output.
func tailExitCode(logPath string) (int, bool) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > 50 {
			lines = lines[1:]
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "exit code:") {
			return parseExitCode(lines[i]), true
		}
	}
	return 0, false
}
