package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"terminal-coder/internal/core"
)

// CreateProject inserts a new Project row, generating an ID if one was not
// already assigned.
func (s *Store) CreateProject(p core.Project) (core.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = core.ProjectStatusInitialized
	}

	_, err := s.db.Exec(
		`INSERT INTO projects (id, name, project_dir, prd_path, bootstrap_path, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ProjectDir, p.PRDPath, nullableString(p.BootstrapPath), string(p.Status),
	)
	if err != nil {
		return core.Project{}, err
	}
	return s.GetProject(p.ID)
}

// GetProject fetches a Project by ID.
func (s *Store) GetProject(id string) (core.Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, project_dir, prd_path, bootstrap_path, status, created_at, updated_at
		 FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetSoleProject returns the single project row a .tc directory holds.
// The orchestrator never manages more than one project at a time.
func (s *Store) GetSoleProject() (core.Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, project_dir, prd_path, bootstrap_path, status, created_at, updated_at
		 FROM projects LIMIT 1`)
	return scanProject(row)
}

// UpdateProjectStatus validates and persists a Project status transition.
func (s *Store) UpdateProjectStatus(id string, status core.ProjectStatus) error {
	current, err := s.GetProject(id)
	if err != nil {
		return err
	}
	if err := core.ValidateProjectTransition(current.Status, status); err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE projects SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	return err
}

func scanProject(row *sql.Row) (core.Project, error) {
	var p core.Project
	var status string
	var bootstrapPath sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(&p.ID, &p.Name, &p.ProjectDir, &p.PRDPath, &bootstrapPath, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Project{}, &core.NotFoundError{Entity: "project", ID: p.ID}
		}
		return core.Project{}, err
	}

	p.Status = core.ProjectStatus(status)
	p.BootstrapPath = bootstrapPath.String
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return p, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
