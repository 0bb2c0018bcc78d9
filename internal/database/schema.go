// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package database

import (
	"context"
	"fmt"
	"time"
)

// Schema strategy: all columns are defined in the initial CREATE TABLE
// statements. There are no migrations; the schema is the single source of
// truth and a fresh volume gets the complete layout at first startup.

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// initSchema creates tables and indexes if they do not exist.
func (db *DB) initSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR PRIMARY KEY,
			source_type VARCHAR NOT NULL DEFAULT 'youtube',
			source_url VARCHAR NOT NULL,
			source_title VARCHAR,
			source_duration DOUBLE,
			font_size INTEGER NOT NULL DEFAULT 24,
			status VARCHAR NOT NULL DEFAULT 'pending',
			error VARCHAR,
			transcript VARCHAR,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS generated_clips (
			id VARCHAR PRIMARY KEY,
			task_id VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			file_path VARCHAR NOT NULL,
			url VARCHAR NOT NULL,
			start_time DOUBLE NOT NULL,
			end_time DOUBLE NOT NULL,
			duration DOUBLE NOT NULL,
			relevance DOUBLE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index names match the original schema so existing volumes carry over.
		`CREATE INDEX IF NOT EXISTS idx_task_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_task_created_at ON tasks(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_clip_task_id ON generated_clips(task_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
