// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		MaxMemory:     "256MB",
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func newTestTask() *models.Task {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Task{
		ID:         uuid.NewString(),
		SourceType: "youtube",
		SourceURL:  "https://youtu.be/abc123",
		FontSize:   24,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := newTestTask()
	require.NoError(t, db.CreateTask(ctx, task))

	got, err := db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.SourceURL, got.SourceURL)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 24, got.FontSize)
	assert.Empty(t, got.Error)
}

func TestGetTaskNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTask(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTaskStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := newTestTask()
	require.NoError(t, db.CreateTask(ctx, task))

	require.NoError(t, db.UpdateTaskStatus(ctx, task.ID, models.StatusDownloading, ""))
	got, err := db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDownloading, got.Status)

	require.NoError(t, db.UpdateTaskStatus(ctx, task.ID, models.StatusFailed, "yt-dlp exited with code 1"))
	got, err = db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "yt-dlp exited with code 1", got.Error)

	assert.ErrorIs(t, db.UpdateTaskStatus(ctx, uuid.NewString(), models.StatusCompleted, ""), ErrNotFound)
}

func TestUpdateTaskSourceAndTranscript(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := newTestTask()
	require.NoError(t, db.CreateTask(ctx, task))

	require.NoError(t, db.UpdateTaskSource(ctx, task.ID, "Conference Talk", 1842.5))
	require.NoError(t, db.UpdateTaskTranscript(ctx, task.ID, "hello world"))

	got, err := db.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Conference Talk", got.SourceTitle)
	assert.InDelta(t, 1842.5, got.SourceDuration, 0.001)
	assert.Equal(t, "hello world", got.Transcript)
}

func TestListTasksOrderAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 5; i++ {
		task := newTestTask()
		task.CreatedAt = base.Add(time.Duration(i) * time.Second)
		task.UpdatedAt = task.CreatedAt
		require.NoError(t, db.CreateTask(ctx, task))
		ids = append(ids, task.ID)
	}

	tasks, err := db.ListTasks(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// Newest first.
	assert.Equal(t, ids[4], tasks[0].ID)
	assert.Equal(t, ids[2], tasks[2].ID)

	tasks, err = db.ListTasks(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, ids[1], tasks[0].ID)
}

func TestCountTasksByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateTask(ctx, newTestTask()))
	}
	task := newTestTask()
	task.Status = models.StatusCompleted
	require.NoError(t, db.CreateTask(ctx, task))

	pending, err := db.CountTasksByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 3, pending)

	completed, err := db.CountTasksByStatus(ctx, models.StatusCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, completed)
}

func TestClipsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := newTestTask()
	require.NoError(t, db.CreateTask(ctx, task))

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, start := range []float64{60, 10} {
		clip := &models.GeneratedClip{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Title:     "Highlight",
			FilePath:  "outputs/clips/x.mp4",
			URL:       "/clips/x.mp4",
			StartTime: start,
			EndTime:   start + 30,
			Duration:  30,
			Relevance: 0.9 - float64(i)*0.1,
			CreatedAt: now,
		}
		require.NoError(t, db.CreateClip(ctx, clip))
	}

	clips, err := db.GetClipsByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	// Ordered by start time.
	assert.InDelta(t, 10, clips[0].StartTime, 0.001)
	assert.InDelta(t, 60, clips[1].StartTime, 0.001)
	// The serving URL is part of the row, not derived on read.
	assert.Equal(t, "/clips/x.mp4", clips[0].URL)
	assert.Equal(t, "/clips/x.mp4", clips[1].URL)
}

func TestDeleteTaskCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	task := newTestTask()
	require.NoError(t, db.CreateTask(ctx, task))
	require.NoError(t, db.CreateClip(ctx, &models.GeneratedClip{
		ID: uuid.NewString(), TaskID: task.ID, Title: "c", FilePath: "p",
		StartTime: 0, EndTime: 30, Duration: 30, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, db.DeleteTask(ctx, task.ID))

	_, err := db.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	clips, err := db.GetClipsByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, clips)

	assert.ErrorIs(t, db.DeleteTask(ctx, uuid.NewString()), ErrNotFound)
}
