// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package jobqueue provides the NATS JetStream task queue that decouples the
// HTTP API from the clip worker. A single-instance deployment runs the broker
// embedded in-process; multi-instance deployments point both sides at an
// external server.
//
// Wire contract: clip jobs are published on "tasks.clip" and progress events
// on "tasks.progress.<task_id>", all under the SUPOCLIP_TASKS stream.
package jobqueue

import (
	"fmt"
	"time"
)

// Stream and subject names.
const (
	StreamName      = "SUPOCLIP_TASKS"
	StreamSubjects  = "tasks.>"
	JobSubject      = "tasks.clip"
	ProgressPrefix  = "tasks.progress."
	ProgressSubject = ProgressPrefix + "*"
)

// ClipJob is the message the API publishes for each accepted task.
// JobID doubles as the Nats-Msg-Id for deduplication, so a resubmitted
// message within the duplicate window is dropped by the broker.
type ClipJob struct {
	JobID       string    `json:"job_id"`
	TaskID      string    `json:"task_id"`
	SourceURL   string    `json:"source_url"`
	FontSize    int       `json:"font_size"`
	RequestedAt time.Time `json:"requested_at"`
}

// Validate checks required fields.
func (j *ClipJob) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id required")
	}
	if j.TaskID == "" {
		return fmt.Errorf("task_id required")
	}
	if j.SourceURL == "" {
		return fmt.Errorf("source_url required")
	}
	if j.FontSize <= 0 {
		return fmt.Errorf("font_size must be positive")
	}
	return nil
}

// Topic returns the subject the job is published on.
func (j *ClipJob) Topic() string {
	return JobSubject
}

// ProgressEvent reports a task's pipeline state transition. The worker
// publishes one per transition; the WebSocket hub fans them out to clients.
type ProgressEvent struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks required fields.
func (e *ProgressEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task_id required")
	}
	if e.Status == "" {
		return fmt.Errorf("status required")
	}
	return nil
}

// Topic returns the per-task progress subject.
func (e *ProgressEvent) Topic() string {
	return ProgressPrefix + e.TaskID
}
