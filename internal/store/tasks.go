package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// CreateTask inserts a new Task.
func (s *Store) CreateTask(t core.Task) (core.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = core.TaskStatusPending
	}
	if t.TaskType == "" {
		t.TaskType = core.TaskTypeCoding
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, phase_id, name, description, sequence, status, task_type, max_retries, brief_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PhaseID, t.Name, t.Description, t.Sequence, string(t.Status), string(t.TaskType),
		t.MaxRetries, nullableString(t.BriefPath))
	if err != nil {
		return core.Task{}, err
	}
	return s.GetTask(t.ID)
}

// GetTask fetches a Task by ID.
func (s *Store) GetTask(id string) (core.Task, error) {
	row := s.db.QueryRow(taskSelect+` WHERE id = ?`, id)
	return scanTask(row)
}

// GetTasksByPhase returns every task belonging to a phase, in sequence order.
func (s *Store) GetTasksByPhase(phaseID string) ([]core.Task, error) {
	rows, err := s.db.Query(taskSelect+` WHERE phase_id = ? ORDER BY sequence ASC`, phaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRowsAll(rows)
}

// GetTasksByProject returns every task across every phase of a project.
func (s *Store) GetTasksByProject(projectID string) ([]core.Task, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.phase_id, t.name, t.description, t.sequence, t.status, t.task_type,
			t.retry_count, t.max_retries, t.error_context, t.brief_path,
			t.created_at, t.started_at, t.completed_at
		 FROM tasks t JOIN phases p ON p.id = t.phase_id
		 WHERE p.project_id = ?
		 ORDER BY p.sequence ASC, t.sequence ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRowsAll(rows)
}

// GetTasksByStatus returns every task in a project with the given status.
func (s *Store) GetTasksByStatus(projectID string, status core.TaskStatus) ([]core.Task, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.phase_id, t.name, t.description, t.sequence, t.status, t.task_type,
			t.retry_count, t.max_retries, t.error_context, t.brief_path,
			t.created_at, t.started_at, t.completed_at
		 FROM tasks t JOIN phases p ON p.id = t.phase_id
		 WHERE p.project_id = ? AND t.status = ?
		 ORDER BY p.sequence ASC, t.sequence ASC`, projectID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRowsAll(rows)
}

// GetPendingTasksWithMetDeps returns every Pending task in a phase whose
// dependencies (if any) are all Completed or Skipped - the scheduler's core
// readiness query, ported from the reference orchestrator's
// get_pending_tasks_with_met_deps.
func (s *Store) GetPendingTasksWithMetDeps(phaseID string) ([]core.Task, error) {
	rows, err := s.db.Query(
		taskSelect+` WHERE phase_id = ? AND status = ?
		 AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			JOIN tasks dep ON dep.id = d.depends_on_id
			WHERE d.task_id = tasks.id
			AND dep.status NOT IN (?, ?)
		 )
		 ORDER BY sequence ASC`,
		phaseID, string(core.TaskStatusPending), string(core.TaskStatusCompleted), string(core.TaskStatusSkipped))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRowsAll(rows)
}

// UpdateTaskStatus validates and persists a Task status transition, stamping
// started_at/completed_at the way the reference repository branches its
// update queries by target status.
func (s *Store) UpdateTaskStatus(id string, status core.TaskStatus) error {
	current, err := s.GetTask(id)
	if err != nil {
		return err
	}
	if err := core.ValidateTaskTransition(current.Status, status); err != nil {
		return err
	}

	switch status {
	case core.TaskStatusRunning:
		_, err := s.db.Exec(
			`UPDATE tasks SET status = ?, started_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
		return err
	case core.TaskStatusCompleted, core.TaskStatusFailed, core.TaskStatusSkipped:
		_, err := s.db.Exec(
			`UPDATE tasks SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
		return err
	default:
		_, err := s.db.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
		return err
	}
}

// UpdateTaskError records a failure, atomically incrementing retry_count and
// setting status to Failed.
func (s *Store) UpdateTaskError(id string, errorContext string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, error_context = ?, retry_count = retry_count + 1 WHERE id = ?`,
		string(core.TaskStatusFailed), errorContext, id)
	return err
}

// UpdateTaskBriefPath records where a task's rendered worker brief was
// written on disk.
func (s *Store) UpdateTaskBriefPath(id string, path string) error {
	_, err := s.db.Exec(`UPDATE tasks SET brief_path = ? WHERE id = ?`, path, id)
	return err
}

// RequeueTask forces a Failed or Paused task back to Queued for `tc retry`.
// This bypasses state-machine validation on purpose: retrying is an operator
// override of the normal lifecycle, the same way the reference
// orchestrator's retry command writes status directly through the
// repository rather than the engine's own transition path.
func (s *Store) RequeueTask(id string) error {
	_, err := s.db.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, string(core.TaskStatusQueued), id)
	return err
}

// ResetTask puts a task back to Pending with a clean slate: zeroed retry
// count, cleared error context, and cleared timestamps, the same fields
// `tc reset` touches against the reference implementation's raw UPDATE.
func (s *Store) ResetTask(id string) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, retry_count = 0, error_context = NULL,
		 started_at = NULL, completed_at = NULL WHERE id = ?`,
		string(core.TaskStatusPending), id)
	return err
}

// AddTaskDependency records a hard dependency edge: taskID cannot become
// schedulable until dependsOnID reaches Completed or Skipped.
func (s *Store) AddTaskDependency(taskID, dependsOnID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)`,
		taskID, dependsOnID)
	return err
}

// GetTaskDependencies returns the IDs of every task that taskID depends on.
func (s *Store) GetTaskDependencies(taskID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT depends_on_id FROM task_dependencies WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const taskSelect = `SELECT id, phase_id, name, description, sequence, status, task_type,
	retry_count, max_retries, error_context, brief_path, created_at, started_at, completed_at
	FROM tasks`

func scanTask(row *sql.Row) (core.Task, error) {
	t, err := scanTaskInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, &core.NotFoundError{Entity: "task", ID: t.ID}
		}
		return core.Task{}, err
	}
	return t, nil
}

func scanTaskRowsAll(rows *sql.Rows) ([]core.Task, error) {
	var out []core.Task
	for rows.Next() {
		t, err := scanTaskInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTaskInto(scanner rowsScanner) (core.Task, error) {
	var t core.Task
	var status, taskType string
	var errorContext, briefPath sql.NullString
	var createdAt time.Time
	var startedAt, completedAt sql.NullTime

	err := scanner.Scan(&t.ID, &t.PhaseID, &t.Name, &t.Description, &t.Sequence, &status, &taskType,
		&t.RetryCount, &t.MaxRetries, &errorContext, &briefPath, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return core.Task{}, err
	}

	t.Status = core.TaskStatus(status)
	t.TaskType = core.TaskType(taskType)
	t.ErrorContext = errorContext.String
	t.BriefPath = briefPath.String
	t.CreatedAt = createdAt
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}
