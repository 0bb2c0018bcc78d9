// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob() *ClipJob {
	return &ClipJob{
		JobID:       "job-1",
		TaskID:      "task-1",
		SourceURL:   "https://youtu.be/abc123",
		FontSize:    24,
		RequestedAt: time.Now().UTC(),
	}
}

func TestClipJobValidate(t *testing.T) {
	assert.NoError(t, validJob().Validate())

	job := validJob()
	job.JobID = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.TaskID = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.SourceURL = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.FontSize = 0
	assert.Error(t, job.Validate())
}

func TestClipJobTopic(t *testing.T) {
	assert.Equal(t, "tasks.clip", validJob().Topic())
}

func TestProgressEventTopic(t *testing.T) {
	event := &ProgressEvent{TaskID: "abc-123", Status: "downloading"}
	assert.Equal(t, "tasks.progress.abc-123", event.Topic())
}

func TestSerializeJobRoundTrip(t *testing.T) {
	job := validJob()
	data, err := SerializeJob(job)
	require.NoError(t, err)

	got, err := DeserializeJob(data)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, job.TaskID, got.TaskID)
	assert.Equal(t, job.SourceURL, got.SourceURL)
	assert.Equal(t, job.FontSize, got.FontSize)
	assert.WithinDuration(t, job.RequestedAt, got.RequestedAt, time.Millisecond)
}

func TestSerializeJobRejectsInvalid(t *testing.T) {
	_, err := SerializeJob(&ClipJob{})
	assert.Error(t, err)
}

func TestDeserializeJobRejectsMalformed(t *testing.T) {
	_, err := DeserializeJob([]byte("{not json"))
	assert.Error(t, err)

	// Parses but fails validation.
	_, err = DeserializeJob([]byte(`{"job_id":"j"}`))
	assert.Error(t, err)
}

func TestSerializeProgressRoundTrip(t *testing.T) {
	event := &ProgressEvent{
		TaskID:    "task-1",
		Status:    "transcribing",
		Detail:    "uploaded audio",
		Timestamp: time.Now().UTC(),
	}
	data, err := SerializeProgress(event)
	require.NoError(t, err)

	got, err := DeserializeProgress(data)
	require.NoError(t, err)
	assert.Equal(t, event.TaskID, got.TaskID)
	assert.Equal(t, event.Status, got.Status)
	assert.Equal(t, event.Detail, got.Detail)
}

func TestSerializeProgressRejectsInvalid(t *testing.T) {
	_, err := SerializeProgress(&ProgressEvent{Status: "downloading"})
	assert.Error(t, err)
}
