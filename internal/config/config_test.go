// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "google-gla:gemini-2.5-flash-lite", cfg.Pipeline.LLMModel)
	assert.Equal(t, 3600, cfg.Pipeline.MaxVideoDuration)
	assert.Equal(t, 10, cfg.Pipeline.MaxClips)
	assert.Equal(t, 30, cfg.Pipeline.ClipDuration)
	assert.Equal(t, "outputs", cfg.Paths.Output)
	assert.True(t, cfg.Queue.Embedded)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
}

func TestLoadPortOverride(t *testing.T) {
	t.Setenv("PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr())
}

func TestLoadEmptyPortDefaults(t *testing.T) {
	// Compose interpolation can leave PORT set but empty; that must behave
	// like an unset variable, not zero out the default.
	t.Setenv("PORT", "")
	t.Setenv("SUPOCLIP_SERVER_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("ASSEMBLY_AI_API_KEY", "aai-test-key")
	t.Setenv("GOOGLE_API_KEY", "g-test-key")
	t.Setenv("MAX_CLIPS", "5")
	t.Setenv("OUTPUT_DIR", "/srv/clips")
	t.Setenv("LLM_MODEL", "openai:gpt-5-mini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "aai-test-key", cfg.Credentials.AssemblyAI)
	assert.Equal(t, "g-test-key", cfg.Credentials.Google)
	assert.Equal(t, 5, cfg.Pipeline.MaxClips)
	assert.Equal(t, "/srv/clips", cfg.Paths.Output)
	assert.Equal(t, "openai:gpt-5-mini", cfg.Pipeline.LLMModel)
	assert.True(t, cfg.Credentials.HasTranscriptionKey())
	assert.True(t, cfg.Credentials.HasLLMKey())
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SUPOCLIP_SERVER_PORT", "9001")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supoclip.yaml")
	content := []byte("server:\n  port: 8080\npipeline:\n  max_clips: 3\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxClips)
	// Untouched keys keep defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supoclip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))
	t.Setenv("PORT", "9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadMissingConfigFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "PORT"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
		{"empty host", func(c *Config) { c.Server.Host = "" }, "HOST"},
		{"zero max duration", func(c *Config) { c.Pipeline.MaxVideoDuration = 0 }, "MAX_VIDEO_DURATION"},
		{"zero max clips", func(c *Config) { c.Pipeline.MaxClips = 0 }, "MAX_CLIPS"},
		{"zero clip duration", func(c *Config) { c.Pipeline.ClipDuration = 0 }, "CLIP_DURATION"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"external queue without url", func(c *Config) { c.Queue.Embedded = false; c.Queue.URL = "" }, "NATS_URL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestInvalidEnvFailsLoad(t *testing.T) {
	t.Setenv("PORT", "99999")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Defaults()
	cfg.Paths = PathsConfig{
		Uploads: filepath.Join(root, "uploads"),
		Output:  filepath.Join(root, "outputs"),
		Logs:    filepath.Join(root, "logs"),
		Temp:    filepath.Join(root, "tmp"),
	}

	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{
		cfg.Paths.Uploads,
		filepath.Join(cfg.Paths.Output, "clips"),
		cfg.Paths.Logs,
		cfg.Paths.Temp,
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestCredentialWarnings(t *testing.T) {
	cfg := Defaults()
	warnings := cfg.CredentialWarnings()
	assert.Len(t, warnings, 2)

	cfg.Credentials.AssemblyAI = "key"
	cfg.Credentials.Anthropic = "key"
	assert.Empty(t, cfg.CredentialWarnings())
}
