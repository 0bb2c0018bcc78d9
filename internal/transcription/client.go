// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package transcription provides the AssemblyAI client used by the clip
// worker. Calls are rate limited and protected by a circuit breaker so a
// degraded upstream fails fast instead of stalling the pipeline.
package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/metrics"
	"github.com/supoclip/supoclip/internal/transcache"
)

// Result is a completed transcription.
type Result struct {
	Text  string
	Words []transcache.Word
}

// Client talks to the AssemblyAI v2 API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	limiter      *rate.Limiter
	breaker      *breaker
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       zerolog.Logger
}

// NewClient creates a transcription client from configuration.
func NewClient(cfg *config.TranscriptionConfig, apiKey string) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      cfg.BaseURL,
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		breaker:      newBreaker("assemblyai"),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		logger:       logging.Logger().With().Str("component", "transcription").Logger(),
	}
}

// assemblyWord mirrors AssemblyAI's word timing object (milliseconds).
type assemblyWord struct {
	Text  string `json:"text"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

type transcriptResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Text   string         `json:"text"`
	Words  []assemblyWord `json:"words"`
	Error  string         `json:"error"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// Transcribe uploads the media file and polls until the transcript is ready.
func (c *Client) Transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	start := time.Now()
	result, err := c.transcribe(ctx, mediaPath)
	metrics.RecordProviderCall("assemblyai", time.Since(start), err)
	return result, err
}

func (c *Client) transcribe(ctx context.Context, mediaPath string) (*Result, error) {
	audioURL, err := c.upload(ctx, mediaPath)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	id, err := c.createTranscript(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}

	c.logger.Info().Str("transcript_id", id).Msg("Transcript created, polling for completion")
	return c.poll(ctx, id)
}

// upload streams the media file to AssemblyAI and returns the upload URL.
func (c *Client) upload(ctx context.Context, mediaPath string) (string, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	body, err := c.do(ctx, http.MethodPost, "/upload", "application/octet-stream", f)
	if err != nil {
		return "", err
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("empty upload_url in response")
	}
	return resp.UploadURL, nil
}

func (c *Client) createTranscript(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"audio_url": audioURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/transcript", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp transcriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse transcript response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("empty transcript id in response")
	}
	return resp.ID, nil
}

// poll checks transcript status until completed, errored, or timed out.
func (c *Client) poll(ctx context.Context, id string) (*Result, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		body, err := c.do(ctx, http.MethodGet, "/transcript/"+id, "", nil)
		if err != nil {
			return nil, err
		}

		var resp transcriptResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parse transcript status: %w", err)
		}

		switch resp.Status {
		case "completed":
			return &Result{
				Text:  resp.Text,
				Words: convertWords(resp.Words),
			}, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", resp.Error)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transcription timed out after %s (status %s)", c.pollTimeout, resp.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do issues one rate-limited, breaker-protected request and returns the body.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 256))
		}
		return data, nil
	})
}

func convertWords(in []assemblyWord) []transcache.Word {
	if len(in) == 0 {
		return nil
	}
	words := make([]transcache.Word, len(in))
	for i, w := range in {
		words[i] = transcache.Word{
			Text:  w.Text,
			Start: float64(w.Start) / 1000,
			End:   float64(w.End) / 1000,
		}
	}
	return words
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max])
}
