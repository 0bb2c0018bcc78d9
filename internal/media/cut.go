// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CutSpec describes one clip extraction.
type CutSpec struct {
	Input        string
	Output       string
	Start        float64 // Seconds from source start
	Duration     float64 // Seconds
	SubtitlePath string  // Optional SRT to burn in
	FontSize     int     // Caption size, used only with SubtitlePath
}

// Validate checks the spec is executable.
func (s *CutSpec) Validate() error {
	if s.Input == "" || s.Output == "" {
		return fmt.Errorf("input and output required")
	}
	if s.Start < 0 {
		return fmt.Errorf("start must be non-negative")
	}
	if s.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

// formatSeconds renders a float for ffmpeg without exponent notation.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// escapeFilterPath escapes characters the ffmpeg filter parser treats
// specially inside the subtitles filename argument.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `[`, `\[`, `]`, `\]`)
	return r.Replace(p)
}

// buildCutArgs returns the ffmpeg invocation for a cut. Seeking happens
// before the input for speed; with subtitles the clip is re-encoded because
// burned captions cannot be stream-copied.
func buildCutArgs(spec *CutSpec) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(spec.Start),
		"-t", formatSeconds(spec.Duration),
		"-i", spec.Input,
	}

	if spec.SubtitlePath != "" {
		fontSize := spec.FontSize
		if fontSize <= 0 {
			fontSize = 24
		}
		filter := fmt.Sprintf("subtitles=%s:force_style='FontSize=%d,Alignment=2'",
			escapeFilterPath(spec.SubtitlePath), fontSize)
		args = append(args,
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", "fast",
			"-c:a", "aac",
		)
	} else {
		args = append(args, "-c", "copy")
	}

	return append(args, spec.Output)
}

// Cut extracts one clip, optionally burning subtitles.
func (t *Toolchain) Cut(ctx context.Context, spec *CutSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, err := t.run(ctx, FFmpegBin, buildCutArgs(spec)); err != nil {
		return fmt.Errorf("cut %s: %w", spec.Output, err)
	}
	return nil
}
