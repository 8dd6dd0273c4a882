package history

import (
	"context"
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    driver      TEXT NOT NULL DEFAULT '',
    port        TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    direction   TEXT NOT NULL,
    text        TEXT NOT NULL,
    timestamp   TEXT NOT NULL,
    UNIQUE (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id, seq);
`

// Migrate brings the schema up to date
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if version < 1 {
		if err := db.applySchemaV1(ctx); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the current schema version, or 0 if no schema exists
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (db *DB) applySchemaV1(ctx context.Context) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}
