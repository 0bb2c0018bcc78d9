// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package config provides typed, layered configuration for SupoClip.
//
// Configuration is populated exactly once at process start from built-in
// defaults, an optional YAML config file, and environment variables (highest
// priority), then validated and passed explicitly to consumers. It is never
// mutated afterward.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the complete, immutable runtime configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Credentials   CredentialsConfig   `koanf:"credentials"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	Paths         PathsConfig         `koanf:"paths"`
	Database      DatabaseConfig      `koanf:"database"`
	Queue         QueueConfig         `koanf:"queue"`
	Transcription TranscriptionConfig `koanf:"transcription"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`    // Bind address (default 0.0.0.0)
	Port    int           `koanf:"port"`    // Env: PORT (default 8000)
	Timeout time.Duration `koanf:"timeout"` // Read/write timeout

	// CORSOrigins for browser clients. The upstream frontend is served from
	// a separate origin, so the default is allow-all.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// CredentialsConfig holds the external API credentials. The transcription key
// and at least one LLM provider key are required for the AI-assisted
// pipeline; the server still starts without them so operators can inspect
// health endpoints, but task submission is rejected.
type CredentialsConfig struct {
	AssemblyAI string `koanf:"assembly_ai_api_key"` // Env: ASSEMBLY_AI_API_KEY
	OpenAI     string `koanf:"openai_api_key"`      // Env: OPENAI_API_KEY
	Google     string `koanf:"google_api_key"`      // Env: GOOGLE_API_KEY
	Anthropic  string `koanf:"anthropic_api_key"`   // Env: ANTHROPIC_API_KEY
}

// HasTranscriptionKey reports whether the AssemblyAI credential is set.
func (c CredentialsConfig) HasTranscriptionKey() bool {
	return strings.TrimSpace(c.AssemblyAI) != ""
}

// HasLLMKey reports whether any of the recognized LLM provider keys is set.
func (c CredentialsConfig) HasLLMKey() bool {
	return strings.TrimSpace(c.OpenAI) != "" ||
		strings.TrimSpace(c.Google) != "" ||
		strings.TrimSpace(c.Anthropic) != ""
}

// PipelineConfig bounds the clipping pipeline.
type PipelineConfig struct {
	// LLMModel selects the highlight-selection model. Provider-prefixed ids
	// are accepted, e.g. "google-gla:gemini-2.5-flash-lite" or
	// "anthropic:claude-sonnet-4-5".
	LLMModel string `koanf:"llm_model"`

	// MaxVideoDuration rejects sources longer than this many seconds.
	MaxVideoDuration int `koanf:"max_video_duration"`

	// MaxClips caps the number of clips per task.
	MaxClips int `koanf:"max_clips"`

	// ClipDuration is the target clip length in seconds.
	ClipDuration int `koanf:"clip_duration"`
}

// PathsConfig names the working directories. All four are created at startup;
// both the server (static clip serving) and the worker (downloads, cuts)
// depend on them existing before either starts.
type PathsConfig struct {
	Uploads string `koanf:"uploads"` // Downloaded source videos
	Output  string `koanf:"output"`  // Env: OUTPUT_DIR; clips live in <output>/clips
	Logs    string `koanf:"logs"`    // File log sink (optional)
	Temp    string `koanf:"temp"`    // Env: TEMP_DIR; scratch space
}

// ClipsDir returns the directory generated clips are written to and served from.
func (p PathsConfig) ClipsDir() string {
	return filepath.Join(p.Output, "clips")
}

// DatabaseConfig controls the DuckDB task store.
type DatabaseConfig struct {
	Path          string        `koanf:"path"` // Env: DUCKDB_PATH
	MaxMemory     string        `koanf:"max_memory"`
	Threads       int           `koanf:"threads"` // 0 = runtime.NumCPU()
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// QueueConfig controls the embedded NATS JetStream task queue.
type QueueConfig struct {
	// Embedded runs an in-process NATS server. When false an external
	// server at URL is expected (multi-container deployments).
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`

	StoreDir      string        `koanf:"store_dir"`
	MaxMemory     int64         `koanf:"max_memory"`
	MaxStore      int64         `koanf:"max_store"`
	RetentionDays int           `koanf:"retention_days"`
	DurableName   string        `koanf:"durable_name"`
	QueueGroup    string        `koanf:"queue_group"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxDeliver    int           `koanf:"max_deliver"`
}

// TranscriptionConfig tunes the AssemblyAI client.
type TranscriptionConfig struct {
	BaseURL      string        `koanf:"base_url"`
	PollInterval time.Duration `koanf:"poll_interval"`
	PollTimeout  time.Duration `koanf:"poll_timeout"`

	// RequestsPerSecond throttles outbound API calls.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// CacheDir is the Badger transcript cache location. Empty disables caching.
	CacheDir string `koanf:"cache_dir"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that the configuration is internally consistent.
// Missing credentials are deliberately not fatal here; the preflight
// validator and the task-submission path surface those to the operator.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST must not be empty")
	}
	if c.Pipeline.MaxVideoDuration <= 0 {
		return fmt.Errorf("MAX_VIDEO_DURATION must be positive, got %d", c.Pipeline.MaxVideoDuration)
	}
	if c.Pipeline.MaxClips < 1 {
		return fmt.Errorf("MAX_CLIPS must be at least 1, got %d", c.Pipeline.MaxClips)
	}
	if c.Pipeline.ClipDuration < 1 {
		return fmt.Errorf("CLIP_DURATION must be at least 1 second, got %d", c.Pipeline.ClipDuration)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if !c.Queue.Embedded && c.Queue.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_EMBEDDED=false")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EnsureDirs creates the working directories (uploads, clips, logs, temp).
// The container build used to pre-create these; creating them at startup
// keeps the contract even on fresh volumes.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.Paths.Uploads,
		c.Paths.ClipsDir(),
		c.Paths.Logs,
		c.Paths.Temp,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CredentialWarnings returns operator-facing warnings for missing optional
// credentials. These mirror the preflight validator's non-fatal checks so the
// container logs the same guidance when started directly.
func (c *Config) CredentialWarnings() []string {
	var warnings []string
	if !c.Credentials.HasTranscriptionKey() {
		warnings = append(warnings, "ASSEMBLY_AI_API_KEY is not set - transcription will not function")
	}
	if !c.Credentials.HasLLMKey() {
		warnings = append(warnings, "no AI provider key set (OPENAI_API_KEY, GOOGLE_API_KEY, or ANTHROPIC_API_KEY) - highlight selection will not function")
	}
	return warnings
}
