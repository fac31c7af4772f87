package store

import (
	"database/sql"
	"fmt"

	"terminal-coder/internal/logging"
)

// columnMigration adds one column to an existing table if it is not already
// present. Ported from the teacher's internal/store/migrations.go, which
// uses the same PRAGMA table_info probe-then-ALTER approach to upgrade
// databases created by older schema versions in place.
type columnMigration struct {
	Table  string
	Column string
	Def    string
}

// pendingColumnMigrations lists schema evolutions applied to .tc/tc.db files
// created before a given column existed.
var pendingColumnMigrations = []columnMigration{
	{"tasks", "brief_path", "TEXT"},
	{"tasks", "max_retries", "INTEGER DEFAULT 1"},
	{"projects", "bootstrap_path", "TEXT"},
}

// runMigrations applies any pending column migrations to db.
func runMigrations(db *sql.DB) error {
	for _, m := range pendingColumnMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			logging.Get(logging.CategoryStore).Warn("migration failed (may already exist): %s.%s: %v", m.Table, m.Column, err)
			continue
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
