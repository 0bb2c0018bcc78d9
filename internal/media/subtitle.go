// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package media

import (
	"fmt"
	"os"
	"strings"

	"github.com/supoclip/supoclip/internal/transcache"
)

// maxCueWords caps words per subtitle cue to keep captions readable.
const maxCueWords = 7

// BuildSRT renders the words falling inside [clipStart, clipEnd) as an SRT
// document with timestamps rebased to the clip. Returns an empty string when
// no words fall in the window.
func BuildSRT(words []transcache.Word, clipStart, clipEnd float64) string {
	var cues []string
	var cueWords []transcache.Word

	flush := func() {
		if len(cueWords) == 0 {
			return
		}
		var texts []string
		for _, w := range cueWords {
			texts = append(texts, w.Text)
		}
		cues = append(cues, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			len(cues)+1,
			srtTimestamp(cueWords[0].Start-clipStart),
			srtTimestamp(cueWords[len(cueWords)-1].End-clipStart),
			strings.Join(texts, " ")))
		cueWords = cueWords[:0]
	}

	for _, w := range words {
		if w.End <= clipStart || w.Start >= clipEnd {
			continue
		}
		cueWords = append(cueWords, w)
		if len(cueWords) >= maxCueWords || strings.ContainsAny(w.Text, ".!?") {
			flush()
		}
	}
	flush()

	return strings.Join(cues, "\n")
}

// WriteSRT writes an SRT document for a clip window to path. Returns false
// if the window contains no words and no file was written.
func WriteSRT(path string, words []transcache.Word, clipStart, clipEnd float64) (bool, error) {
	content := BuildSRT(words, clipStart, clipEnd)
	if content == "" {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return false, fmt.Errorf("write subtitles %s: %w", path, err)
	}
	return true, nil
}

// srtTimestamp formats seconds as HH:MM:SS,mmm. Negative values clamp to zero.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
