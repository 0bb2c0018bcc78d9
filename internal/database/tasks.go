// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/supoclip/supoclip/internal/models"
)

// CreateTask inserts a new task row. ID, status, and timestamps must be set
// by the caller.
func (db *DB) CreateTask(ctx context.Context, task *models.Task) (err error) {
	start := time.Now()
	defer func() { track("insert", "tasks", start, err) }()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, source_type, source_url, source_title, source_duration,
			font_size, status, error, transcript, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.SourceType, task.SourceURL,
		nullString(task.SourceTitle), nullFloat(task.SourceDuration),
		task.FontSize, string(task.Status), nullString(task.Error),
		nullString(task.Transcript), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask returns one task by id, or ErrNotFound.
func (db *DB) GetTask(ctx context.Context, id string) (task *models.Task, err error) {
	start := time.Now()
	defer func() { track("select", "tasks", start, err) }()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, source_type, source_url, source_title, source_duration,
			font_size, status, error, transcript, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)

	task, err = scanTask(row)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns tasks newest first, bounded by limit and offset.
func (db *DB) ListTasks(ctx context.Context, limit, offset int) (tasks []models.Task, err error) {
	start := time.Now()
	defer func() { track("select", "tasks", start, err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, source_type, source_url, source_title, source_duration,
			font_size, status, error, transcript, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks = []models.Task{}
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, *task)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CountTasksByStatus returns the number of tasks in the given status.
func (db *DB) CountTasksByStatus(ctx context.Context, status models.TaskStatus) (count int64, err error) {
	start := time.Now()
	defer func() { track("select", "tasks", start, err) }()

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status = ?`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// UpdateTaskStatus transitions a task to a new status and clears or sets the
// error message. Returns ErrNotFound if the id does not exist.
func (db *DB) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, errMsg string) (err error) {
	start := time.Now()
	defer func() { track("update", "tasks", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(errMsg), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return requireRow(res)
}

// UpdateTaskSource records the downloaded source's title and duration.
func (db *DB) UpdateTaskSource(ctx context.Context, id, title string, duration float64) (err error) {
	start := time.Now()
	defer func() { track("update", "tasks", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET source_title = ?, source_duration = ?, updated_at = ? WHERE id = ?`,
		title, duration, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update task source: %w", err)
	}
	return requireRow(res)
}

// UpdateTaskTranscript stores the full transcript text.
func (db *DB) UpdateTaskTranscript(ctx context.Context, id, transcript string) (err error) {
	start := time.Now()
	defer func() { track("update", "tasks", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET transcript = ?, updated_at = ? WHERE id = ?`,
		transcript, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update task transcript: %w", err)
	}
	return requireRow(res)
}

// DeleteTask removes a task and its clip rows. Clip files on disk are the
// caller's responsibility.
func (db *DB) DeleteTask(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { track("delete", "tasks", start, err) }()

	if _, err = db.conn.ExecContext(ctx,
		`DELETE FROM generated_clips WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("delete clips: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

// CreateClip inserts one generated clip row.
func (db *DB) CreateClip(ctx context.Context, clip *models.GeneratedClip) (err error) {
	start := time.Now()
	defer func() { track("insert", "generated_clips", start, err) }()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO generated_clips (id, task_id, title, file_path, url, start_time,
			end_time, duration, relevance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID, clip.TaskID, clip.Title, clip.FilePath, clip.URL,
		clip.StartTime, clip.EndTime, clip.Duration,
		nullFloat(clip.Relevance), clip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert clip: %w", err)
	}
	return nil
}

// GetClipsByTask returns a task's clips ordered by start time.
func (db *DB) GetClipsByTask(ctx context.Context, taskID string) (clips []models.GeneratedClip, err error) {
	start := time.Now()
	defer func() { track("select", "generated_clips", start, err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, task_id, title, file_path, url, start_time, end_time, duration, relevance, created_at
		 FROM generated_clips WHERE task_id = ? ORDER BY start_time`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	clips = []models.GeneratedClip{}
	for rows.Next() {
		var clip models.GeneratedClip
		var relevance sql.NullFloat64
		if err = rows.Scan(&clip.ID, &clip.TaskID, &clip.Title, &clip.FilePath, &clip.URL,
			&clip.StartTime, &clip.EndTime, &clip.Duration, &relevance, &clip.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		clip.Relevance = relevance.Float64
		clips = append(clips, clip)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	return clips, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var title, errMsg, transcript sql.NullString
	var duration sql.NullFloat64
	var status string

	err := row.Scan(&task.ID, &task.SourceType, &task.SourceURL, &title, &duration,
		&task.FontSize, &status, &errMsg, &transcript, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.SourceTitle = title.String
	task.SourceDuration = duration.Float64
	task.Status = models.TaskStatus(status)
	task.Error = errMsg.String
	task.Transcript = transcript.String
	return &task, nil
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}
