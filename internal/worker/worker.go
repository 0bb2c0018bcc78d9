// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package worker runs the clip generation pipeline. One job moves a task
// through download, transcription, highlight selection, and cutting, with
// each transition persisted to the database and mirrored as a progress
// event on the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/database"
	"github.com/supoclip/supoclip/internal/highlights"
	"github.com/supoclip/supoclip/internal/jobqueue"
	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/media"
	"github.com/supoclip/supoclip/internal/metrics"
	"github.com/supoclip/supoclip/internal/models"
	"github.com/supoclip/supoclip/internal/transcache"
	"github.com/supoclip/supoclip/internal/transcription"
)

// Downloader fetches source media and inspects it.
type Downloader interface {
	Download(ctx context.Context, sourceURL, destDir, taskID string) (*media.DownloadResult, error)
	Probe(ctx context.Context, path string) (float64, error)
}

// Cutter renders a single clip from the source file.
type Cutter interface {
	Cut(ctx context.Context, spec *media.CutSpec) error
}

// Transcriber produces a word-level transcript for a media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (*transcription.Result, error)
}

// SegmentSelector picks the highlight segments from a transcript.
type SegmentSelector interface {
	Select(ctx context.Context, transcript string, videoDuration float64) ([]highlights.Segment, error)
	ProviderName() string
}

// ProgressPublisher emits advisory progress events. Failures are logged,
// never fatal; the task row in the database is the source of truth.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, event *jobqueue.ProgressEvent) error
}

// Worker executes clip jobs. Safe for a single consumer; video work is
// CPU and disk bound, so jobs run sequentially.
type Worker struct {
	cfg         *config.Config
	db          *database.DB
	cache       *transcache.Cache
	downloader  Downloader
	cutter      Cutter
	transcriber Transcriber
	selector    SegmentSelector
	progress    ProgressPublisher
}

// New assembles a worker. cache and transcriber may be nil; a nil
// transcriber fails jobs permanently with a credentials error.
func New(cfg *config.Config, db *database.DB, cache *transcache.Cache, downloader Downloader, cutter Cutter, transcriber Transcriber, selector SegmentSelector, progress ProgressPublisher) *Worker {
	return &Worker{
		cfg:         cfg,
		db:          db,
		cache:       cache,
		downloader:  downloader,
		cutter:      cutter,
		transcriber: transcriber,
		selector:    selector,
		progress:    progress,
	}
}

// Handle processes one clip job. It returns a non-nil error only for
// infrastructure failures before the task row could be updated; once a
// failure is recorded on the task, the job is consumed and nil is
// returned so the queue does not redeliver work that will fail again.
func (w *Worker) Handle(ctx context.Context, job *jobqueue.ClipJob) error {
	logger := logging.With().Str("task_id", job.TaskID).Str("job_id", job.JobID).Logger()

	task, err := w.db.GetTask(ctx, job.TaskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logger.Warn().Msg("Job references unknown task, dropping")
			return nil
		}
		return fmt.Errorf("loading task %s: %w", job.TaskID, err)
	}
	if task.Status.Terminal() {
		logger.Info().Str("status", string(task.Status)).Msg("Task already finished, skipping redelivered job")
		return nil
	}

	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	workDir := filepath.Join(w.cfg.Paths.Temp, "supoclip-"+job.TaskID)
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		w.fail(ctx, logger, job.TaskID, fmt.Errorf("creating work dir: %w", err))
		return nil
	}
	defer os.RemoveAll(workDir)

	if err := w.run(ctx, logger, job, workDir); err != nil {
		w.fail(ctx, logger, job.TaskID, err)
		return nil
	}

	w.setStatus(ctx, logger, job.TaskID, models.StatusCompleted, "")
	metrics.RecordTaskFinished(string(models.StatusCompleted))
	logger.Info().Msg("Task completed")
	return nil
}

func (w *Worker) run(ctx context.Context, logger zerolog.Logger, job *jobqueue.ClipJob, workDir string) error {
	// Download and probe.
	w.setStatus(ctx, logger, job.TaskID, models.StatusDownloading, "")
	stage := time.Now()
	dl, err := w.downloader.Download(ctx, job.SourceURL, workDir, job.TaskID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	duration, err := w.downloader.Probe(ctx, dl.FilePath)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if dl.Duration > 0 {
		duration = dl.Duration
	}
	if max := float64(w.cfg.Pipeline.MaxVideoDuration); duration > max {
		return fmt.Errorf("video is %.0fs long, limit is %.0fs", duration, max)
	}
	if err := w.db.UpdateTaskSource(ctx, job.TaskID, dl.Title, duration); err != nil {
		return fmt.Errorf("recording source metadata: %w", err)
	}
	metrics.RecordStage("download", time.Since(stage))

	// Transcribe, consulting the cache first.
	w.setStatus(ctx, logger, job.TaskID, models.StatusTranscribing, "")
	stage = time.Now()
	words, transcript, err := w.transcribe(ctx, logger, job.SourceURL, dl.FilePath)
	if err != nil {
		return err
	}
	if err := w.db.UpdateTaskTranscript(ctx, job.TaskID, transcript); err != nil {
		return fmt.Errorf("recording transcript: %w", err)
	}
	metrics.RecordStage("transcribe", time.Since(stage))

	// Pick highlights.
	w.setStatus(ctx, logger, job.TaskID, models.StatusAnalyzing, "")
	stage = time.Now()
	if w.selector == nil {
		return errors.New("LLM credentials not configured (set OPENAI_API_KEY, GOOGLE_API_KEY, or ANTHROPIC_API_KEY)")
	}
	segments, err := w.selector.Select(ctx, transcript, duration)
	if err != nil {
		return fmt.Errorf("selecting highlights: %w", err)
	}
	metrics.RecordStage("analyze", time.Since(stage))
	logger.Info().Int("segments", len(segments)).Str("provider", w.selector.ProviderName()).Msg("Highlights selected")

	// Cut clips.
	w.setStatus(ctx, logger, job.TaskID, models.StatusClipping, "")
	stage = time.Now()
	if err := w.cutClips(ctx, logger, job, dl.FilePath, workDir, segments, words); err != nil {
		return err
	}
	metrics.RecordStage("clip", time.Since(stage))
	return nil
}

func (w *Worker) transcribe(ctx context.Context, logger zerolog.Logger, sourceURL, mediaPath string) ([]transcache.Word, string, error) {
	if w.cache != nil {
		if entry, err := w.cache.Get(sourceURL); err == nil {
			logger.Info().Msg("Transcript cache hit")
			return entry.Words, entry.Transcript, nil
		} else if !errors.Is(err, transcache.ErrNotCached) {
			logger.Warn().Err(err).Msg("Transcript cache read failed")
		}
	}

	if w.transcriber == nil {
		return nil, "", errors.New("transcription credentials not configured (set ASSEMBLY_AI_API_KEY)")
	}
	result, err := w.transcriber.Transcribe(ctx, mediaPath)
	if err != nil {
		return nil, "", fmt.Errorf("transcription: %w", err)
	}

	if w.cache != nil {
		entry := &transcache.Entry{
			SourceURL:  sourceURL,
			Transcript: result.Text,
			Words:      result.Words,
			CachedAt:   time.Now().UTC(),
		}
		if err := w.cache.Put(entry); err != nil {
			logger.Warn().Err(err).Msg("Transcript cache write failed")
		}
	}
	return result.Words, result.Text, nil
}

func (w *Worker) cutClips(ctx context.Context, logger zerolog.Logger, job *jobqueue.ClipJob, sourcePath, workDir string, segments []highlights.Segment, words []transcache.Word) error {
	clipsDir := w.cfg.Paths.ClipsDir()
	if err := os.MkdirAll(clipsDir, 0o750); err != nil {
		return fmt.Errorf("creating clips dir: %w", err)
	}

	var made int
	for i, seg := range segments {
		fileName := fmt.Sprintf("%s_%02d.mp4", job.TaskID, i+1)
		outPath := filepath.Join(clipsDir, fileName)

		subtitlePath := filepath.Join(workDir, fmt.Sprintf("clip_%02d.srt", i+1))
		hasSubs, err := media.WriteSRT(subtitlePath, words, seg.Start, seg.End)
		if err != nil {
			logger.Warn().Err(err).Int("segment", i+1).Msg("Subtitle generation failed, cutting without captions")
			hasSubs = false
		}

		spec := &media.CutSpec{
			Input:    sourcePath,
			Output:   outPath,
			Start:    seg.Start,
			Duration: seg.End - seg.Start,
			FontSize: job.FontSize,
		}
		if hasSubs {
			spec.SubtitlePath = subtitlePath
		}
		if err := w.cutter.Cut(ctx, spec); err != nil {
			logger.Error().Err(err).Int("segment", i+1).Msg("Clip render failed, skipping segment")
			continue
		}

		clip := &models.GeneratedClip{
			ID:        uuid.NewString(),
			TaskID:    job.TaskID,
			Title:     seg.Title,
			FilePath:  outPath,
			URL:       "/clips/" + fileName,
			StartTime: seg.Start,
			EndTime:   seg.End,
			Duration:  seg.End - seg.Start,
			Relevance: seg.Relevance,
			CreatedAt: time.Now().UTC(),
		}
		if err := w.db.CreateClip(ctx, clip); err != nil {
			return fmt.Errorf("recording clip %d: %w", i+1, err)
		}
		metrics.ClipsGenerated.Inc()
		made++
	}

	if made == 0 {
		return errors.New("no clips could be rendered")
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, logger zerolog.Logger, taskID string, cause error) {
	logger.Error().Err(cause).Msg("Task failed")
	w.setStatus(ctx, logger, taskID, models.StatusFailed, cause.Error())
	metrics.RecordTaskFinished(string(models.StatusFailed))
}

// setStatus persists the transition and mirrors it on the progress subject.
func (w *Worker) setStatus(ctx context.Context, logger zerolog.Logger, taskID string, status models.TaskStatus, detail string) {
	if err := w.db.UpdateTaskStatus(ctx, taskID, status, detail); err != nil {
		logger.Error().Err(err).Str("status", string(status)).Msg("Status update failed")
	}
	if w.progress == nil {
		return
	}
	event := &jobqueue.ProgressEvent{
		TaskID:    taskID,
		Status:    string(status),
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	if err := w.progress.PublishProgress(ctx, event); err != nil {
		logger.Warn().Err(err).Str("status", string(status)).Msg("Progress publish failed")
	}
}
