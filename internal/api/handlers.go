// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package api exposes the task lifecycle over HTTP: submit a YouTube URL,
// watch progress over WebSocket, fetch the generated clips.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/database"
	"github.com/supoclip/supoclip/internal/jobqueue"
	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/metrics"
	"github.com/supoclip/supoclip/internal/models"
	"github.com/supoclip/supoclip/internal/validation"
	"github.com/supoclip/supoclip/internal/websocket"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// JobPublisher enqueues clip jobs for the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, job *jobqueue.ClipJob) error
}

// QueueHealth reports broker stream state for readiness checks.
type QueueHealth interface {
	IsHealthy(ctx context.Context) bool
	PendingMessages(ctx context.Context) (uint64, error)
}

// Handler implements all HTTP endpoints.
type Handler struct {
	cfg       *config.Config
	db        *database.DB
	publisher JobPublisher
	queue     QueueHealth
	hub       *websocket.Hub
	upgrader  gorillaws.Upgrader
	startTime time.Time
}

// NewHandler wires the handler. queue and hub may be nil in degraded
// setups; affected endpoints report accordingly.
func NewHandler(cfg *config.Config, db *database.DB, publisher JobPublisher, queue QueueHealth, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		db:        db,
		publisher: publisher,
		queue:     queue,
		hub:       hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser origin checks are handled by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr.ToAPIError())
		return
	}

	if !h.cfg.Credentials.HasTranscriptionKey() || !h.cfg.Credentials.HasLLMKey() {
		respondError(w, http.StatusServiceUnavailable, "CREDENTIALS_MISSING",
			"Server is missing transcription or LLM credentials; tasks cannot be processed", nil)
		return
	}

	fontSize := models.DefaultFontSize
	if req.FontSize != nil {
		fontSize = *req.FontSize
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:         uuid.NewString(),
		SourceType: "youtube",
		SourceURL:  req.SourceURL,
		FontSize:   fontSize,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.db.CreateTask(r.Context(), task); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create task", err)
		return
	}

	job := &jobqueue.ClipJob{
		JobID:       uuid.NewString(),
		TaskID:      task.ID,
		SourceURL:   task.SourceURL,
		FontSize:    task.FontSize,
		RequestedAt: now,
	}
	if err := h.publisher.PublishJob(r.Context(), job); err != nil {
		// The row stays visible with a failed status so the client sees
		// what happened instead of a task stuck in pending.
		if derr := h.db.UpdateTaskStatus(r.Context(), task.ID, models.StatusFailed, "task queue unavailable"); derr != nil {
			logging.Error().Err(derr).Str("task_id", task.ID).Msg("Failed to mark task failed after publish error")
		}
		respondError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Task queue is unavailable, try again later", err)
		return
	}

	metrics.TasksCreated.Inc()
	logging.Info().Str("task_id", task.ID).Str("source_url", task.SourceURL).Msg("Task created")
	respondSuccess(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/v1/tasks with limit/offset paging.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	tasks, err := h.db.ListTasks(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tasks", err)
		return
	}
	respondSuccess(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}, embedding clips once present.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load task", err)
		return
	}

	clips, err := h.db.GetClipsByTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load clips", err)
		return
	}
	respondSuccess(w, http.StatusOK, &models.TaskResponse{Task: *task, Clips: clips})
}

// GetTaskClips handles GET /api/v1/tasks/{id}/clips.
func (h *Handler) GetTaskClips(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.db.GetTask(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load task", err)
		return
	}

	clips, err := h.db.GetClipsByTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load clips", err)
		return
	}
	respondSuccess(w, http.StatusOK, clips)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}. Clip files on disk go
// with the rows; a file that is already gone is not an error.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	clips, err := h.db.GetClipsByTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load clips", err)
		return
	}

	if err := h.db.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Task not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete task", err)
		return
	}

	for _, clip := range clips {
		if clip.FilePath == "" {
			continue
		}
		if err := os.Remove(clip.FilePath); err != nil && !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("path", clip.FilePath).Msg("Failed to remove clip file")
		}
	}

	respondSuccess(w, http.StatusOK, map[string]string{"id": id, "deleted": "true"})
}

// Health handles GET /health with per-component detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]models.ComponentHealth)
	status := "healthy"

	if h.db != nil && h.db.Ping(r.Context()) == nil {
		components["database"] = models.ComponentHealth{Status: "ok"}
	} else {
		components["database"] = models.ComponentHealth{Status: "unavailable"}
		status = "degraded"
	}

	if h.queue != nil && h.queue.IsHealthy(r.Context()) {
		detail := ""
		if pending, err := h.queue.PendingMessages(r.Context()); err == nil {
			detail = strconv.FormatUint(pending, 10) + " pending"
		}
		components["queue"] = models.ComponentHealth{Status: "ok", Detail: detail}
	} else {
		components["queue"] = models.ComponentHealth{Status: "unavailable"}
		status = "degraded"
	}

	if h.cfg.Credentials.HasTranscriptionKey() && h.cfg.Credentials.HasLLMKey() {
		components["credentials"] = models.ComponentHealth{Status: "ok"}
	} else {
		components["credentials"] = models.ComponentHealth{
			Status: "unavailable",
			Detail: "transcription or LLM API key missing",
		}
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, &models.HealthStatus{
		Status:     status,
		Version:    Version,
		Timestamp:  time.Now().UTC(),
		Components: components,
	})
}

// HealthLive handles GET /health/live. Process is up, nothing else.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, &models.HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
	})
}

// HealthReady handles GET /health/ready. Ready means the database answers
// and the task stream exists.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database is not ready", nil)
		return
	}
	if h.queue == nil || !h.queue.IsHealthy(r.Context()) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Task queue is not ready", nil)
		return
	}
	respondSuccess(w, http.StatusOK, &models.HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}

// HealthQueue handles GET /api/v1/health/queue with stream detail.
func (h *Handler) HealthQueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil || !h.queue.IsHealthy(r.Context()) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Task stream is unavailable", nil)
		return
	}
	pending, err := h.queue.PendingMessages(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Task stream info unavailable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"stream":  jobqueue.StreamName,
		"pending": pending,
	})
}

// WebSocket handles GET /api/v1/ws, upgrading into the progress hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Progress updates are unavailable", nil)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	websocket.NewClient(h.hub, conn).Start()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
