package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables are plain DDL; queries against them go through the dialect builder.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS paths (
		id TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		sequence INTEGER NOT NULL UNIQUE,
		format_version TEXT NOT NULL,
		nodes TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS paths_learner_sequence ON paths (learner_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS mastery (
		learner_id TEXT NOT NULL,
		knowledge_point_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (learner_id, knowledge_point_id)
	)`,
	`CREATE TABLE IF NOT EXISTS adjustments (
		sequence INTEGER PRIMARY KEY,
		learner_id TEXT NOT NULL,
		path_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		knowledge_point_id INTEGER NOT NULL,
		reason TEXT NOT NULL,
		changed INTEGER NOT NULL,
		old_length INTEGER NOT NULL,
		new_length INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS adjustments_learner ON adjustments (learner_id, sequence)`,
	`CREATE TABLE IF NOT EXISTS kpath_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		value INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO kpath_sequence (id, value) VALUES (1, 0)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
