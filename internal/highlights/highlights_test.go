// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package highlights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supoclip/supoclip/internal/config"
)

type stubProvider struct {
	response string
	err      error
	prompt   string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"google-gla:gemini-2.5-flash-lite", "google"},
		{"google:gemini-2.0-flash", "google"},
		{"openai:gpt-4o-mini", "openai"},
		{"anthropic:claude-3-5-haiku-latest", "anthropic"},
		{"claude:claude-sonnet", "anthropic"},
		{"mystery:model", ""},
		{"no-colon-at-all", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, providerForModel(tt.model), tt.model)
	}
}

func TestResolveProviderPrefersModelPrefix(t *testing.T) {
	creds := &config.CredentialsConfig{Google: "g", OpenAI: "o", Anthropic: "a"}

	p, err := resolveProvider("openai:gpt-4o-mini", creds)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestResolveProviderFallbackOrder(t *testing.T) {
	// Prefixed provider has no key; fall back to Google first.
	p, err := resolveProvider("openai:gpt-4o-mini", &config.CredentialsConfig{Google: "g", Anthropic: "a"})
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	p, err = resolveProvider("google-gla:gemini-2.5-flash-lite", &config.CredentialsConfig{Anthropic: "a"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestResolveProviderNoCredentials(t *testing.T) {
	_, err := resolveProvider("google-gla:gemini-2.5-flash-lite", &config.CredentialsConfig{})
	assert.Error(t, err)
}

func testLimits() config.PipelineConfig {
	return config.PipelineConfig{MaxClips: 3, ClipDuration: 30, MaxVideoDuration: 3600}
}

func TestSelect(t *testing.T) {
	stub := &stubProvider{response: `[
		{"title": "Opening hook", "start": 12, "end": 40, "relevance": 0.9},
		{"title": "Key insight", "start": 300, "end": 335, "relevance": 0.8}
	]`}
	selector := NewSelectorWithProvider(stub, testLimits())

	segments, err := selector.Select(context.Background(), "some transcript", 600)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, "Opening hook", segments[0].Title)
	assert.InDelta(t, 12, segments[0].Start, 0.001)
	// Second segment clamped to 30s target length.
	assert.InDelta(t, 330, segments[1].End, 0.001)

	// Prompt carries the transcript and the limits.
	assert.Contains(t, stub.prompt, "some transcript")
	assert.Contains(t, stub.prompt, "up to 3")
}

func TestSelectProviderError(t *testing.T) {
	stub := &stubProvider{err: errors.New("rate limited")}
	selector := NewSelectorWithProvider(stub, testLimits())

	_, err := selector.Select(context.Background(), "t", 600)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestSelectSortsByStart(t *testing.T) {
	stub := &stubProvider{response: `[
		{"title": "B", "start": 200, "end": 230},
		{"title": "A", "start": 10, "end": 40}
	]`}
	selector := NewSelectorWithProvider(stub, testLimits())

	segments, err := selector.Select(context.Background(), "t", 600)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "A", segments[0].Title)
	assert.Equal(t, "B", segments[1].Title)
}

func TestParseSegmentsCodeFence(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"title\": \"X\", \"start\": 5, \"end\": 20, \"relevance\": 0.5}]\n```"
	segments, err := parseSegments(raw, 10, 30, 600)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "X", segments[0].Title)
}

func TestParseSegmentsClamping(t *testing.T) {
	raw := `[
		{"title": "negative start", "start": -5, "end": 20, "relevance": 2},
		{"title": "past the end", "start": 700, "end": 730},
		{"title": "no end", "start": 100},
		{"title": "runs over", "start": 590, "end": 650}
	]`
	segments, err := parseSegments(raw, 10, 30, 600)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.InDelta(t, 0, segments[0].Start, 0.001)
	assert.InDelta(t, 1, segments[0].Relevance, 0.001)

	// Missing end gets the target duration.
	assert.InDelta(t, 130, segments[1].End, 0.001)

	// Overrun clamps to video duration.
	assert.InDelta(t, 600, segments[2].End, 0.001)
}

func TestParseSegmentsMaxClips(t *testing.T) {
	raw := `[
		{"title": "1", "start": 0, "end": 30},
		{"title": "2", "start": 60, "end": 90},
		{"title": "3", "start": 120, "end": 150}
	]`
	segments, err := parseSegments(raw, 2, 30, 600)
	require.NoError(t, err)
	assert.Len(t, segments, 2)
}

func TestParseSegmentsRejectsGarbage(t *testing.T) {
	_, err := parseSegments("I could not find any highlights.", 10, 30, 600)
	assert.Error(t, err)

	_, err = parseSegments("[]", 10, 30, 600)
	assert.Error(t, err)
}

func TestBuildPromptTruncatesTranscript(t *testing.T) {
	long := strings.Repeat("word ", 20000)
	prompt := buildPrompt(long, 10, 30, 600)
	assert.Less(t, len(prompt), len(long))
	assert.Contains(t, prompt, "JSON array")
}
