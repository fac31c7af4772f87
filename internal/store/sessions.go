package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// CreateSession inserts a new Session bound to a Task.
func (s *Store) CreateSession(sess core.Session) (core.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = core.SessionStatusPending
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, task_id, session_type, status, pane, pid, log_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.TaskID, string(sess.SessionType), string(sess.Status), sess.Pane, sess.PID, sess.LogPath)
	if err != nil {
		return core.Session{}, err
	}
	return s.GetSession(sess.ID)
}

// GetSession fetches a Session by ID.
func (s *Store) GetSession(id string) (core.Session, error) {
	row := s.db.QueryRow(sessionSelect+` WHERE id = ?`, id)
	return scanSession(row)
}

// GetSessionsByTask returns every session attempt for a task, most recent
// first.
func (s *Store) GetSessionsByTask(taskID string) ([]core.Session, error) {
	rows, err := s.db.Query(sessionSelect+` WHERE task_id = ? ORDER BY created_at DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessionRowsAll(rows)
}

// GetActiveSessions returns every session not yet in a terminal status -
// what the session manager polls on startup to reattach to live workers.
func (s *Store) GetActiveSessions() ([]core.Session, error) {
	rows, err := s.db.Query(
		sessionSelect+` WHERE status IN (?, ?, ?) ORDER BY created_at ASC`,
		string(core.SessionStatusPending), string(core.SessionStatusStarting), string(core.SessionStatusRunning))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessionRowsAll(rows)
}

// UpdateSessionStatus validates and persists a bare status transition, with
// no timestamp side effect.
func (s *Store) UpdateSessionStatus(id string, status core.SessionStatus) error {
	current, err := s.GetSession(id)
	if err != nil {
		return err
	}
	if err := core.ValidateSessionTransition(current.Status, status); err != nil {
		return err
	}

	_, err = s.db.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// UpdateSessionStarted marks a session Running, recording its pane and PID
// once the worker process has actually been spawned.
func (s *Store) UpdateSessionStarted(id string, pane string, pid int) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, pane = ?, pid = ?, started_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(core.SessionStatusRunning), pane, pid, id)
	return err
}

// UpdateSessionCompleted marks a session Completed or Failed (by exit code),
// computing duration_secs from started_at the way the reference
// orchestrator's julianday-based duration query does.
func (s *Store) UpdateSessionCompleted(id string, exitCode int) error {
	status := core.SessionStatusCompleted
	if exitCode != 0 {
		status = core.SessionStatusFailed
	}
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, exit_code = ?, completed_at = CURRENT_TIMESTAMP,
			duration_secs = CAST((julianday('now') - julianday(started_at)) * 86400 AS INTEGER)
		 WHERE id = ?`,
		string(status), exitCode, id)
	return err
}

// UpdateSessionError marks a session Failed with an error context, for
// infrastructure failures that never produced an exit code (e.g. the worker
// process could not be spawned at all).
func (s *Store) UpdateSessionError(id string, errorContext string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET status = ?, error_context = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(core.SessionStatusFailed), errorContext, id)
	return err
}

// DeleteSessionsByTask removes every session attempt recorded for a task,
// for `tc reset` clearing a task's history before it runs again.
func (s *Store) DeleteSessionsByTask(taskID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE task_id = ?`, taskID)
	return err
}

const sessionSelect = `SELECT id, task_id, session_type, status, pane, pid, log_path,
	exit_code, duration_secs, error_context, created_at, started_at, completed_at
	FROM sessions`

func scanSession(row *sql.Row) (core.Session, error) {
	sess, err := scanSessionInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Session{}, &core.NotFoundError{Entity: "session", ID: sess.ID}
		}
		return core.Session{}, err
	}
	return sess, nil
}

func scanSessionRowsAll(rows *sql.Rows) ([]core.Session, error) {
	var out []core.Session
	for rows.Next() {
		sess, err := scanSessionInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSessionInto(scanner rowsScanner) (core.Session, error) {
	var sess core.Session
	var sessionType, status string
	var exitCode, durationSecs sql.NullInt64
	var errorContext sql.NullString
	var createdAt time.Time
	var startedAt, completedAt sql.NullTime

	err := scanner.Scan(&sess.ID, &sess.TaskID, &sessionType, &status, &sess.Pane, &sess.PID, &sess.LogPath,
		&exitCode, &durationSecs, &errorContext, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return core.Session{}, err
	}

	sess.SessionType = core.SessionType(sessionType)
	sess.Status = core.SessionStatus(status)
	sess.ErrorContext = errorContext.String
	sess.CreatedAt = createdAt
	if exitCode.Valid {
		v := int(exitCode.Int64)
		sess.ExitCode = &v
	}
	if durationSecs.Valid {
		v := int(durationSecs.Int64)
		sess.DurationSecs = &v
	}
	if startedAt.Valid {
		sess.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		sess.CompletedAt = &completedAt.Time
	}
	return sess, nil
}
