// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package media

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"
)

// DownloadResult describes a fetched source video.
type DownloadResult struct {
	FilePath string
	Title    string
	Duration float64 // Seconds
}

// ytDlpInfo is the subset of yt-dlp's JSON output we read.
type ytDlpInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Filename string  `json:"_filename"`
}

// buildDownloadArgs returns the yt-dlp invocation for a source URL.
// MP4 output is forced so ffmpeg can cut without re-probing codecs, and
// --restrict-filenames keeps the path shell-safe.
func buildDownloadArgs(sourceURL, destDir, taskID string) []string {
	outTemplate := filepath.Join(destDir, taskID+".%(ext)s")
	return []string{
		"--no-playlist",
		"--restrict-filenames",
		"--no-progress",
		"--print-json",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"-o", outTemplate,
		sourceURL,
	}
}

// Download fetches a source video into destDir, named by task id.
// The returned duration comes from yt-dlp metadata; callers needing an
// authoritative value should follow up with Probe on the file.
func (t *Toolchain) Download(ctx context.Context, sourceURL, destDir, taskID string) (*DownloadResult, error) {
	out, err := t.run(ctx, YtDlpBin, buildDownloadArgs(sourceURL, destDir, taskID))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sourceURL, err)
	}

	var info ytDlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	filePath := info.Filename
	if filePath == "" {
		// yt-dlp reports the pre-merge filename on some format combinations.
		filePath = filepath.Join(destDir, taskID+".mp4")
	}

	return &DownloadResult{
		FilePath: filePath,
		Title:    info.Title,
		Duration: info.Duration,
	}, nil
}
