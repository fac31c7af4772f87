package store

import (
	"database/sql"
	"time"

	"terminal-coder/internal/core"
)

// CreateEvent appends an immutable Event record.
func (s *Store) CreateEvent(evt core.Event) (core.Event, error) {
	res, err := s.db.Exec(
		`INSERT INTO events (project_id, entity_type, entity_id, event_type, old_value, new_value, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.ProjectID, evt.EntityType, evt.EntityID, string(evt.EventType),
		nullableString(evt.OldValue), nullableString(evt.NewValue), nullableString(evt.Metadata))
	if err != nil {
		return core.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Event{}, err
	}
	return s.GetEvent(id)
}

// GetEvent fetches a single Event by its autoincrement ID.
func (s *Store) GetEvent(id int64) (core.Event, error) {
	row := s.db.QueryRow(eventSelect+` WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventsByProject returns every event recorded for a project, oldest
// first, for the `tc events` audit view.
func (s *Store) GetEventsByProject(projectID string) ([]core.Event, error) {
	rows, err := s.db.Query(eventSelect+` WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEventRowsAll(rows)
}

// GetEventsByEntity returns every event recorded against a single entity
// (a phase, task, or session), oldest first.
func (s *Store) GetEventsByEntity(entityType, entityID string) ([]core.Event, error) {
	rows, err := s.db.Query(
		eventSelect+` WHERE entity_type = ? AND entity_id = ? ORDER BY created_at ASC, id ASC`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEventRowsAll(rows)
}

const eventSelect = `SELECT id, project_id, entity_type, entity_id, event_type,
	old_value, new_value, metadata, created_at FROM events`

func scanEvent(row *sql.Row) (core.Event, error) {
	return scanEventInto(row)
}

func scanEventRowsAll(rows *sql.Rows) ([]core.Event, error) {
	var out []core.Event
	for rows.Next() {
		evt, err := scanEventInto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func scanEventInto(scanner rowsScanner) (core.Event, error) {
	var evt core.Event
	var eventType string
	var oldValue, newValue, metadata sql.NullString
	var createdAt time.Time

	err := scanner.Scan(&evt.ID, &evt.ProjectID, &evt.EntityType, &evt.EntityID, &eventType,
		&oldValue, &newValue, &metadata, &createdAt)
	if err != nil {
		return core.Event{}, err
	}

	evt.EventType = core.EventType(eventType)
	evt.OldValue = oldValue.String
	evt.NewValue = newValue.String
	evt.Metadata = metadata.String
	evt.CreatedAt = createdAt
	return evt, nil
}
