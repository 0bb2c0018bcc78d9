// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package models defines the data structures shared across the SupoClip
// application: database rows, queue payloads, and API request/response
// shapes. It is the single source of truth for these definitions.
package models

import (
	"time"
)

// TaskStatus tracks a clipping task through the worker pipeline.
type TaskStatus string

// Pipeline states in order. A task moves strictly forward through the
// processing states and terminates in either StatusCompleted or StatusFailed.
const (
	StatusPending      TaskStatus = "pending"
	StatusDownloading  TaskStatus = "downloading"
	StatusTranscribing TaskStatus = "transcribing"
	StatusAnalyzing    TaskStatus = "analyzing"
	StatusClipping     TaskStatus = "clipping"
	StatusCompleted    TaskStatus = "completed"
	StatusFailed       TaskStatus = "failed"
)

// Terminal reports whether the status is a final pipeline state.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the recognized pipeline states.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDownloading, StatusTranscribing,
		StatusAnalyzing, StatusClipping, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Task is a clipping request and its pipeline state.
//
// SourceType is "youtube" for URL submissions; SourceDuration is populated
// after download via ffprobe. Transcript stores the full AssemblyAI text so
// retries and clip re-generation skip the transcription stage.
type Task struct {
	ID             string     `json:"id"`
	SourceType     string     `json:"source_type"`
	SourceURL      string     `json:"source_url"`
	SourceTitle    string     `json:"source_title,omitempty"`
	SourceDuration float64    `json:"source_duration,omitempty"`
	FontSize       int        `json:"font_size"`
	Status         TaskStatus `json:"status"`
	Error          string     `json:"error,omitempty"`
	Transcript     string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GeneratedClip is one output clip of a completed task.
type GeneratedClip struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"-"`
	URL       string    `json:"url"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Duration  float64   `json:"duration"`
	Relevance float64   `json:"relevance,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskRequest is the POST /api/v1/tasks payload.
//
// Validation rules:
//   - SourceURL: required, must be a YouTube URL (youtube_url rule)
//   - FontSize: optional, 10 to 100 inclusive, defaults to 24
type CreateTaskRequest struct {
	SourceURL string `json:"source_url" validate:"required,youtube_url"`
	FontSize  *int   `json:"font_size,omitempty" validate:"omitempty,min=10,max=100"`
}

// DefaultFontSize is applied when CreateTaskRequest.FontSize is absent.
const DefaultFontSize = 24

// TaskResponse is the task detail payload, optionally embedding clips.
type TaskResponse struct {
	Task
	Clips []GeneratedClip `json:"clips,omitempty"`
}

// APIResponse is the standardized wrapper for all HTTP endpoints.
//
// Status is "success" or "error"; Error is populated only on failure.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response generation details.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries structured error details.
//
// Codes in use: VALIDATION_ERROR, NOT_FOUND, RATE_LIMITED, QUEUE_UNAVAILABLE,
// CREDENTIALS_MISSING, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the /health family payload.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth reports one dependency's state ("ok" or "unavailable").
type ComponentHealth struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
