// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SUPOCLIP_"

// envAliases maps the bare environment variable names the original deployment
// documents (docker-compose, README) onto koanf config paths. Prefixed
// SUPOCLIP_* variables are also honored via the generic transform below and
// take precedence when both are set.
var envAliases = map[string]string{
	"HOST":                "server.host",
	"PORT":                "server.port",
	"ASSEMBLY_AI_API_KEY": "credentials.assembly_ai_api_key",
	"OPENAI_API_KEY":      "credentials.openai_api_key",
	"GOOGLE_API_KEY":      "credentials.google_api_key",
	"ANTHROPIC_API_KEY":   "credentials.anthropic_api_key",
	"LLM_MODEL":           "pipeline.llm_model",
	"MAX_VIDEO_DURATION":  "pipeline.max_video_duration",
	"MAX_CLIPS":           "pipeline.max_clips",
	"CLIP_DURATION":       "pipeline.clip_duration",
	"OUTPUT_DIR":          "paths.output",
	"TEMP_DIR":            "paths.temp",
	"UPLOADS_DIR":         "paths.uploads",
	"LOGS_DIR":            "paths.logs",
	"DUCKDB_PATH":         "database.path",
	"NATS_EMBEDDED":       "queue.embedded",
	"NATS_URL":            "queue.url",
	"NATS_STORE_DIR":      "queue.store_dir",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
}

// Defaults returns the built-in configuration. Values match the original
// deployment's documented defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         60 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Pipeline: PipelineConfig{
			LLMModel:         "google-gla:gemini-2.5-flash-lite",
			MaxVideoDuration: 3600,
			MaxClips:         10,
			ClipDuration:     30,
		},
		Paths: PathsConfig{
			Uploads: "uploads",
			Output:  "outputs",
			Logs:    "logs",
			Temp:    os.TempDir(),
		},
		Database: DatabaseConfig{
			Path:          "data/supoclip.db",
			MaxMemory:     "512MB",
			RetryAttempts: 10,
			RetryDelay:    2 * time.Second,
		},
		Queue: QueueConfig{
			Embedded:      true,
			StoreDir:      "data/nats",
			MaxMemory:     64 << 20,
			MaxStore:      1 << 30,
			RetentionDays: 7,
			DurableName:   "supoclip-worker",
			QueueGroup:    "supoclip_tasks",
			AckWait:       30 * time.Minute,
			MaxDeliver:    3,
		},
		Transcription: TranscriptionConfig{
			BaseURL:           "https://api.assemblyai.com/v2",
			PollInterval:      3 * time.Second,
			PollTimeout:       30 * time.Minute,
			RequestsPerSecond: 2,
			CacheDir:          "data/transcache",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and the
// environment, in ascending priority. configFile may be empty.
func Load(configFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", configFile, err)
			}
		}
	}

	// Bare aliases first so SUPOCLIP_* prefixed variables win on conflict.
	if err := k.Load(env.ProviderWithValue("", ".", aliasTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment aliases: %w", err)
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", prefixTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// aliasTransform maps the documented bare variable names; anything not in the
// alias table is ignored so unrelated environment noise never leaks in.
// A set-but-empty variable (compose interpolation like PORT=${PORT}) is
// treated as unset, leaving the default in place.
func aliasTransform(s, v string) (string, interface{}) {
	if v == "" {
		return "", nil
	}
	if path, ok := envAliases[s]; ok {
		return path, v
	}
	return "", nil
}

// prefixTransform maps SUPOCLIP_SERVER_PORT style variables onto dotted
// paths. Single underscores become dots, so section names themselves must not
// contain underscores; leaf keys that do (e.g. max_clips) are resolved by the
// alias table or the section-aware split below. Empty values are skipped,
// same as the alias layer.
func prefixTransform(s, v string) (string, interface{}) {
	if v == "" {
		return "", nil
	}
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	// Split only at the first underscore: SECTION_LEAF_WITH_UNDERSCORES.
	section, leaf, found := strings.Cut(key, "_")
	if !found {
		return key, v
	}
	return section + "." + leaf, v
}
