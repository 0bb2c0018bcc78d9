// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supoclip/supoclip/internal/transcache"
)

func TestBuildDownloadArgs(t *testing.T) {
	args := buildDownloadArgs("https://youtu.be/abc", "/data/uploads", "task-1")

	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--print-json")
	assert.Contains(t, args, "--restrict-filenames")
	assert.Contains(t, args, "https://youtu.be/abc")

	// Output template carries the task id.
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "/data/uploads/task-1.%(ext)s")
	assert.Contains(t, joined, "--merge-output-format mp4")
	// Source URL comes last.
	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
}

func TestBuildProbeArgs(t *testing.T) {
	args := buildProbeArgs("/data/uploads/task-1.mp4")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-show_entries format=duration")
	assert.Contains(t, joined, "-of json")
	assert.Equal(t, "/data/uploads/task-1.mp4", args[len(args)-1])
}

func TestBuildCutArgsStreamCopy(t *testing.T) {
	spec := &CutSpec{
		Input:    "in.mp4",
		Output:   "out.mp4",
		Start:    63.5,
		Duration: 30,
	}
	args := buildCutArgs(spec)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-ss 63.500")
	assert.Contains(t, joined, "-t 30.000")
	assert.Contains(t, joined, "-c copy")
	assert.NotContains(t, joined, "-vf")
	assert.Equal(t, "out.mp4", args[len(args)-1])
	// Seek precedes the input for fast keyframe seeking.
	assert.Less(t, indexOf(args, "-ss"), indexOf(args, "-i"))
}

func TestBuildCutArgsWithSubtitles(t *testing.T) {
	spec := &CutSpec{
		Input:        "in.mp4",
		Output:       "out.mp4",
		Start:        10,
		Duration:     30,
		SubtitlePath: "clip.srt",
		FontSize:     48,
	}
	joined := strings.Join(buildCutArgs(spec), " ")

	assert.Contains(t, joined, "subtitles=clip.srt")
	assert.Contains(t, joined, "FontSize=48")
	assert.Contains(t, joined, "-c:v libx264")
	assert.NotContains(t, joined, "-c copy")
}

func TestBuildCutArgsDefaultFontSize(t *testing.T) {
	spec := &CutSpec{
		Input: "in.mp4", Output: "out.mp4", Start: 0, Duration: 30,
		SubtitlePath: "clip.srt",
	}
	assert.Contains(t, strings.Join(buildCutArgs(spec), " "), "FontSize=24")
}

func TestCutSpecValidate(t *testing.T) {
	valid := CutSpec{Input: "a", Output: "b", Start: 0, Duration: 30}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Input = ""
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Start = -1
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Duration = 0
	assert.Error(t, bad.Validate())
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `C\:\\tmp\\a.srt`, escapeFilterPath(`C:\tmp\a.srt`))
	assert.Equal(t, `a\'b.srt`, escapeFilterPath(`a'b.srt`))
}

func TestSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(0))
	assert.Equal(t, "00:01:05,250", srtTimestamp(65.25))
	assert.Equal(t, "01:00:00,001", srtTimestamp(3600.001))
	// Clamped.
	assert.Equal(t, "00:00:00,000", srtTimestamp(-2))
}

func TestBuildSRT(t *testing.T) {
	words := []transcache.Word{
		{Text: "before", Start: 5, End: 6},
		{Text: "Hello", Start: 10.5, End: 11},
		{Text: "world.", Start: 11.2, End: 11.8},
		{Text: "Next", Start: 12, End: 12.5},
		{Text: "cue", Start: 12.6, End: 13},
		{Text: "after", Start: 45, End: 46},
	}

	srt := BuildSRT(words, 10, 40)
	require.NotEmpty(t, srt)

	// Words outside the window are excluded.
	assert.NotContains(t, srt, "before")
	assert.NotContains(t, srt, "after")

	// Sentence end splits cues; timestamps are rebased to the clip.
	assert.Contains(t, srt, "Hello world.")
	assert.Contains(t, srt, "Next cue")
	assert.Contains(t, srt, "00:00:00,500 --> 00:00:01,800")
	assert.True(t, strings.HasPrefix(srt, "1\n"))
	assert.Contains(t, srt, "\n2\n")
}

func TestBuildSRTEmptyWindow(t *testing.T) {
	words := []transcache.Word{{Text: "late", Start: 100, End: 101}}
	assert.Empty(t, BuildSRT(words, 0, 30))
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}
