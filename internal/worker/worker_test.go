// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/database"
	"github.com/supoclip/supoclip/internal/highlights"
	"github.com/supoclip/supoclip/internal/jobqueue"
	"github.com/supoclip/supoclip/internal/media"
	"github.com/supoclip/supoclip/internal/models"
	"github.com/supoclip/supoclip/internal/transcache"
	"github.com/supoclip/supoclip/internal/transcription"
)

type stubDownloader struct {
	title    string
	duration float64
	err      error
}

func (s *stubDownloader) Download(_ context.Context, _, destDir, taskID string) (*media.DownloadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	path := filepath.Join(destDir, taskID+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o640); err != nil {
		return nil, err
	}
	return &media.DownloadResult{FilePath: path, Title: s.title, Duration: s.duration}, nil
}

func (s *stubDownloader) Probe(_ context.Context, _ string) (float64, error) {
	return s.duration, nil
}

type stubCutter struct {
	specs   []*media.CutSpec
	failIdx map[int]bool
}

func (s *stubCutter) Cut(_ context.Context, spec *media.CutSpec) error {
	idx := len(s.specs)
	s.specs = append(s.specs, spec)
	if s.failIdx[idx] {
		return errors.New("ffmpeg exited with status 1")
	}
	return os.WriteFile(spec.Output, []byte("clip"), 0o640)
}

type stubTranscriber struct {
	result *transcription.Result
	err    error
	calls  int
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string) (*transcription.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSelector struct {
	segments []highlights.Segment
	err      error
}

func (s *stubSelector) Select(_ context.Context, _ string, _ float64) ([]highlights.Segment, error) {
	return s.segments, s.err
}

func (s *stubSelector) ProviderName() string { return "stub" }

type progressRecorder struct {
	events []*jobqueue.ProgressEvent
}

func (p *progressRecorder) PublishProgress(_ context.Context, event *jobqueue.ProgressEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *progressRecorder) statuses() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Status)
	}
	return out
}

type fixture struct {
	cfg      *config.Config
	db       *database.DB
	progress *progressRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Paths.Temp = filepath.Join(dir, "tmp")
	cfg.Paths.Output = filepath.Join(dir, "out")
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Database.RetryAttempts = 1
	require.NoError(t, os.MkdirAll(cfg.Paths.Temp, 0o750))

	db, err := database.New(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{cfg: cfg, db: db, progress: &progressRecorder{}}
}

func (f *fixture) createTask(t *testing.T, status models.TaskStatus) *models.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &models.Task{
		ID:         uuid.NewString(),
		SourceType: "youtube",
		SourceURL:  "https://www.youtube.com/watch?v=abc123",
		FontSize:   24,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.db.CreateTask(context.Background(), task))
	return task
}

func jobFor(task *models.Task) *jobqueue.ClipJob {
	return &jobqueue.ClipJob{
		JobID:       uuid.NewString(),
		TaskID:      task.ID,
		SourceURL:   task.SourceURL,
		FontSize:    task.FontSize,
		RequestedAt: time.Now().UTC(),
	}
}

func defaultWorker(f *fixture) (*Worker, *stubCutter) {
	cutter := &stubCutter{}
	w := New(f.cfg, f.db, nil,
		&stubDownloader{title: "Test Video", duration: 300},
		cutter,
		&stubTranscriber{result: &transcription.Result{
			Text:  "hello world this is a test",
			Words: []transcache.Word{{Text: "hello", Start: 0, End: 0.5}, {Text: "world", Start: 0.5, End: 1}},
		}},
		&stubSelector{segments: []highlights.Segment{
			{Title: "Opening", Start: 0, End: 30, Relevance: 0.9},
			{Title: "Middle", Start: 60, End: 90, Relevance: 0.7},
		}},
		f.progress,
	)
	return w, cutter
}

func TestHandleHappyPath(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)
	w, cutter := defaultWorker(f)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "Test Video", got.SourceTitle)
	assert.InDelta(t, 300, got.SourceDuration, 0.01)

	clips, err := f.db.GetClipsByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, "Opening", clips[0].Title)
	assert.Equal(t, "/clips/"+task.ID+"_01.mp4", clips[0].URL)
	assert.FileExists(t, clips[0].FilePath)

	require.Len(t, cutter.specs, 2)
	assert.Equal(t, 24, cutter.specs[0].FontSize)

	assert.Equal(t, []string{
		string(models.StatusDownloading),
		string(models.StatusTranscribing),
		string(models.StatusAnalyzing),
		string(models.StatusClipping),
		string(models.StatusCompleted),
	}, f.progress.statuses())
}

func TestHandleUnknownTaskDropped(t *testing.T) {
	f := newFixture(t)
	w, _ := defaultWorker(f)

	job := &jobqueue.ClipJob{
		JobID:       uuid.NewString(),
		TaskID:      uuid.NewString(),
		SourceURL:   "https://youtu.be/missing",
		FontSize:    24,
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, w.Handle(context.Background(), job))
	assert.Empty(t, f.progress.events)
}

func TestHandleTerminalTaskSkipped(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusCompleted)
	w, cutter := defaultWorker(f)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))
	assert.Empty(t, cutter.specs)
	assert.Empty(t, f.progress.events)
}

func TestHandleVideoTooLong(t *testing.T) {
	f := newFixture(t)
	f.cfg.Pipeline.MaxVideoDuration = 60
	task := f.createTask(t, models.StatusPending)
	w, _ := defaultWorker(f)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "limit is 60s")
}

func TestHandleNoTranscriberFails(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)
	w := New(f.cfg, f.db, nil,
		&stubDownloader{duration: 100},
		&stubCutter{},
		nil,
		&stubSelector{},
		f.progress,
	)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "ASSEMBLY_AI_API_KEY")
}

func TestHandleCacheHitSkipsTranscriber(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)

	cache, err := transcache.Open(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	require.NoError(t, cache.Put(&transcache.Entry{
		SourceURL:  task.SourceURL,
		Transcript: "cached words",
		Words:      []transcache.Word{{Text: "cached", Start: 0, End: 1}},
		CachedAt:   time.Now().UTC(),
	}))

	tr := &stubTranscriber{err: errors.New("should not be called")}
	w := New(f.cfg, f.db, cache,
		&stubDownloader{duration: 100},
		&stubCutter{},
		tr,
		&stubSelector{segments: []highlights.Segment{{Title: "Clip", Start: 0, End: 10, Relevance: 1}}},
		f.progress,
	)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))
	assert.Zero(t, tr.calls)

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestHandleCutFailureSkipsSegment(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)
	w, cutter := defaultWorker(f)
	cutter.failIdx = map[int]bool{0: true}

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	clips, err := f.db.GetClipsByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "Middle", clips[0].Title)
}

func TestHandleAllCutsFailTaskFails(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)
	w, cutter := defaultWorker(f)
	cutter.failIdx = map[int]bool{0: true, 1: true}

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "no clips could be rendered")
}

func TestHandleSelectorError(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, models.StatusPending)
	w := New(f.cfg, f.db, nil,
		&stubDownloader{duration: 100},
		&stubCutter{},
		&stubTranscriber{result: &transcription.Result{Text: "words"}},
		&stubSelector{err: errors.New("model returned no usable segments")},
		f.progress,
	)

	require.NoError(t, w.Handle(context.Background(), jobFor(task)))

	got, err := f.db.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, f.progress.statuses(), string(models.StatusFailed))
}