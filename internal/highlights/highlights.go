// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package highlights selects clip-worthy segments from a transcript using an
// LLM provider. The provider is chosen from the configured model id's prefix
// ("google-gla:gemini-..." selects Google) with fallback to whichever
// provider has a credential, in the order Google, OpenAI, Anthropic.
package highlights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/metrics"
)

// Segment is one selected highlight, in source-video seconds.
type Segment struct {
	Title     string  `json:"title"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Relevance float64 `json:"relevance"`
}

// Provider generates a completion for a prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Selector picks highlight segments from transcripts.
type Selector struct {
	provider Provider
	limits   config.PipelineConfig
	logger   zerolog.Logger
}

// NewSelector builds a selector for the configured model and credentials.
// Returns an error when no provider has a credential.
func NewSelector(cfg *config.Config) (*Selector, error) {
	provider, err := resolveProvider(cfg.Pipeline.LLMModel, &cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return &Selector{
		provider: provider,
		limits:   cfg.Pipeline,
		logger:   logging.Logger().With().Str("component", "highlights").Str("provider", provider.Name()).Logger(),
	}, nil
}

// NewSelectorWithProvider builds a selector around an explicit provider.
func NewSelectorWithProvider(provider Provider, limits config.PipelineConfig) *Selector {
	return &Selector{
		provider: provider,
		limits:   limits,
		logger:   logging.Logger().With().Str("component", "highlights").Str("provider", provider.Name()).Logger(),
	}
}

// ProviderName reports which provider backs the selector.
func (s *Selector) ProviderName() string {
	return s.provider.Name()
}

// Select asks the provider for highlight segments. The response is parsed,
// clamped to the pipeline limits, and sorted by start time.
func (s *Selector) Select(ctx context.Context, transcript string, videoDuration float64) ([]Segment, error) {
	prompt := buildPrompt(transcript, s.limits.MaxClips, s.limits.ClipDuration, videoDuration)

	start := time.Now()
	raw, err := s.provider.Complete(ctx, prompt)
	metrics.RecordProviderCall(s.provider.Name(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("highlight selection via %s: %w", s.provider.Name(), err)
	}

	segments, err := parseSegments(raw, s.limits.MaxClips, float64(s.limits.ClipDuration), videoDuration)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", s.provider.Name(), err)
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })

	s.logger.Info().Int("segments", len(segments)).Msg("Highlights selected")
	return segments, nil
}

// providerForModel maps a model id prefix onto a provider key.
func providerForModel(model string) string {
	prefix, _, found := strings.Cut(model, ":")
	if !found {
		return ""
	}
	switch strings.ToLower(prefix) {
	case "google", "google-gla", "google-vertex", "gemini":
		return "google"
	case "openai", "gpt":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	}
	return ""
}

// modelName returns the part after the provider prefix, or the whole id.
func modelName(model string) string {
	if _, name, found := strings.Cut(model, ":"); found {
		return name
	}
	return model
}

func resolveProvider(model string, creds *config.CredentialsConfig) (Provider, error) {
	name := modelName(model)

	switch providerForModel(model) {
	case "google":
		if creds.Google != "" {
			return newGoogleProvider(creds.Google, name), nil
		}
	case "openai":
		if creds.OpenAI != "" {
			return newOpenAIProvider(creds.OpenAI, name), nil
		}
	case "anthropic":
		if creds.Anthropic != "" {
			return newAnthropicProvider(creds.Anthropic, name), nil
		}
	}

	// Model's provider has no key (or the prefix is unknown); fall back to
	// any configured provider with its default model.
	switch {
	case creds.Google != "":
		return newGoogleProvider(creds.Google, defaultGoogleModel), nil
	case creds.OpenAI != "":
		return newOpenAIProvider(creds.OpenAI, defaultOpenAIModel), nil
	case creds.Anthropic != "":
		return newAnthropicProvider(creds.Anthropic, defaultAnthropicModel), nil
	}

	return nil, fmt.Errorf("no AI provider credential configured (set OPENAI_API_KEY, GOOGLE_API_KEY, or ANTHROPIC_API_KEY)")
}
