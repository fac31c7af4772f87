package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// CreateBootstrapCheck persists the result of one bootstrap verification
// check run against a project.
func (s *Store) CreateBootstrapCheck(c core.BootstrapCheck) (core.BootstrapCheck, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO bootstrap_checks (id, project_id, name, check_type, passed, stdout, stderr, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.CheckType, c.Passed, c.Stdout, c.Stderr, c.ExitCode)
	if err != nil {
		return core.BootstrapCheck{}, err
	}
	return s.GetBootstrapCheck(c.ID)
}

// GetBootstrapCheck fetches a single bootstrap check result by ID.
func (s *Store) GetBootstrapCheck(id string) (core.BootstrapCheck, error) {
	row := s.db.QueryRow(bootstrapCheckSelect+` WHERE id = ?`, id)
	return scanBootstrapCheck(row)
}

// GetBootstrapChecksByProject returns every bootstrap check recorded for a
// project, in the order they were run.
func (s *Store) GetBootstrapChecksByProject(projectID string) ([]core.BootstrapCheck, error) {
	rows, err := s.db.Query(bootstrapCheckSelect+` WHERE project_id = ? ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.BootstrapCheck
	for rows.Next() {
		c, err := scanBootstrapCheckInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const bootstrapCheckSelect = `SELECT id, project_id, name, check_type, passed, stdout, stderr, exit_code, created_at
	FROM bootstrap_checks`

func scanBootstrapCheck(row *sql.Row) (core.BootstrapCheck, error) {
	return scanBootstrapCheckInto(row)
}

func scanBootstrapCheckInto(scanner rowsScanner) (core.BootstrapCheck, error) {
	var c core.BootstrapCheck
	var createdAt time.Time

	err := scanner.Scan(&c.ID, &c.ProjectID, &c.Name, &c.CheckType, &c.Passed, &c.Stdout, &c.Stderr, &c.ExitCode, &createdAt)
	if err != nil {
		return core.BootstrapCheck{}, err
	}
	c.CreatedAt = createdAt
	return c, nil
}
