package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// CreatePhase inserts a new Phase at the given sequence position.
func (s *Store) CreatePhase(p core.Phase) (core.Phase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = core.PhaseStatusPending
	}

	_, err := s.db.Exec(
		`INSERT INTO phases (id, project_id, name, sequence, status) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Name, p.Sequence, string(p.Status))
	if err != nil {
		return core.Phase{}, err
	}
	return s.GetPhase(p.ID)
}

// GetPhase fetches a Phase by ID.
func (s *Store) GetPhase(id string) (core.Phase, error) {
	row := s.db.QueryRow(
		`SELECT id, project_id, name, sequence, status, created_at, started_at, completed_at
		 FROM phases WHERE id = ?`, id)
	return scanPhase(row)
}

// GetPhasesByProject returns every phase for a project, ordered by sequence.
func (s *Store) GetPhasesByProject(projectID string) ([]core.Phase, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, name, sequence, status, created_at, started_at, completed_at
		 FROM phases WHERE project_id = ? ORDER BY sequence ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Phase
	for rows.Next() {
		phase, err := scanPhaseRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, phase)
	}
	return out, rows.Err()
}

// UpdatePhaseStatus validates and persists a Phase status transition,
// stamping started_at/completed_at the way the reference repository's
// branch-by-target-status queries do.
func (s *Store) UpdatePhaseStatus(id string, status core.PhaseStatus) error {
	current, err := s.GetPhase(id)
	if err != nil {
		return err
	}
	if err := core.ValidatePhaseTransition(current.Status, status); err != nil {
		return err
	}

	switch status {
	case core.PhaseStatusInProgress:
		_, err := s.db.Exec(
			`UPDATE phases SET status = ?, started_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
		return err
	case core.PhaseStatusCompleted, core.PhaseStatusFailed:
		_, err := s.db.Exec(
			`UPDATE phases SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
		return err
	default:
		_, err := s.db.Exec(`UPDATE phases SET status = ? WHERE id = ?`, string(status), id)
		return err
	}
}

// ResetPhase puts a phase back to Pending with cleared timestamps, for
// `tc reset --phase`.
func (s *Store) ResetPhase(id string) error {
	_, err := s.db.Exec(
		`UPDATE phases SET status = ?, started_at = NULL, completed_at = NULL WHERE id = ?`,
		string(core.PhaseStatusPending), id)
	return err
}

func scanPhase(row *sql.Row) (core.Phase, error) {
	var p core.Phase
	var status string
	var createdAt time.Time
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Sequence, &status, &createdAt, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Phase{}, &core.NotFoundError{Entity: "phase", ID: p.ID}
		}
		return core.Phase{}, err
	}
	p.Status = core.PhaseStatus(status)
	p.CreatedAt = createdAt
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}

// rowsScanner is the subset of *sql.Rows that scanPhaseRows needs, so the
// same scan logic backs both single-row and multi-row queries.
type rowsScanner interface {
	Scan(dest ...any) error
}

func scanPhaseRows(rows rowsScanner) (core.Phase, error) {
	var p core.Phase
	var status string
	var createdAt time.Time
	var startedAt, completedAt sql.NullTime

	err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Sequence, &status, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return core.Phase{}, err
	}
	p.Status = core.PhaseStatus(status)
	p.CreatedAt = createdAt
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}
