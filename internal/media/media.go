// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package media wraps the external video toolchain (yt-dlp, ffprobe, ffmpeg)
// behind context-aware Go APIs. All invocations build argument lists through
// dedicated functions so the exact command lines are unit-testable without
// the binaries installed.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/supoclip/supoclip/internal/logging"
)

// Binary names resolved via PATH.
const (
	YtDlpBin   = "yt-dlp"
	FFmpegBin  = "ffmpeg"
	FFprobeBin = "ffprobe"
)

// RequiredBinaries lists the external tools the worker depends on.
var RequiredBinaries = []string{YtDlpBin, FFmpegBin, FFprobeBin}

// CheckBinaries verifies the toolchain is installed, returning one error per
// missing binary.
func CheckBinaries() []error {
	var errs []error
	for _, bin := range RequiredBinaries {
		if _, err := exec.LookPath(bin); err != nil {
			errs = append(errs, fmt.Errorf("%s not found in PATH", bin))
		}
	}
	return errs
}

// Toolchain executes the external tools. The zero value is not usable;
// construct with NewToolchain.
type Toolchain struct {
	logger zerolog.Logger
}

// NewToolchain returns a toolchain logging through the global logger.
func NewToolchain() *Toolchain {
	return &Toolchain{
		logger: logging.Logger().With().Str("component", "media").Logger(),
	}
}

// run executes a command, returning stdout. Stderr is captured and folded
// into the error because yt-dlp and ffmpeg write their diagnostics there.
func (t *Toolchain) run(ctx context.Context, name string, args []string) ([]byte, error) {
	t.logger.Debug().Str("bin", name).Strs("args", args).Msg("Executing toolchain command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := truncate(stderr.String(), 2048)
		t.logger.Error().
			Err(err).
			Str("bin", name).
			Str("stderr", stderrOutput).
			Msg("Toolchain command failed")
		return nil, fmt.Errorf("%s: %w (stderr: %s)", name, err, stderrOutput)
	}

	return stdout.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
