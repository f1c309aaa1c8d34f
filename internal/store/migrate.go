package store

import "database/sql"

// migrations is the single migration set SPEC_FULL.md §6 calls for: version
// 001 creates jobs and schema_migrations plus the status/created_at
// indexes. Statements are written once per dialect because SQLite and
// Postgres disagree on a handful of column types.
var migrations = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			request_json TEXT NOT NULL,
			result_json TEXT,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			duration_ms BIGINT,
			dist TEXT NOT NULL,
			elem_type TEXT NOT NULL,
			repeats INTEGER NOT NULL,
			threads INTEGER NOT NULL,
			baseline TEXT,
			algos TEXT,
			mode TEXT,
			state_transitions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
		`CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_created_at_idx ON jobs (status, created_at)`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			request_json TEXT NOT NULL,
			result_json TEXT,
			error TEXT,
			created_at DATETIME NOT NULL,
			started_at DATETIME,
			finished_at DATETIME,
			duration_ms INTEGER,
			dist TEXT NOT NULL,
			elem_type TEXT NOT NULL,
			repeats INTEGER NOT NULL,
			threads INTEGER NOT NULL,
			baseline TEXT,
			algos TEXT,
			mode TEXT,
			state_transitions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status)`,
		`CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at)`,
		`CREATE INDEX IF NOT EXISTS jobs_status_created_at_idx ON jobs (status, created_at)`,
	},
}

// Migrate applies migration 001 if schema_migrations does not already
// record it. Idempotent: safe to call on every process start.
func Migrate(db *sql.DB, driver string) error {
	stmts, ok := migrations[driver]
	if !ok {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	var applied int
	row := tx.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = 1`)
	if err := row.Scan(&applied); err != nil {
		return err
	}
	if applied == 0 {
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (1)`); err != nil {
			return err
		}
	}
	return tx.Commit()
}
