// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package highlights

import (
	"fmt"
	"strings"
)

// maxTranscriptChars bounds prompt size; transcripts beyond this are
// truncated at a word boundary.
const maxTranscriptChars = 48000

func buildPrompt(transcript string, maxClips, clipDuration int, videoDuration float64) string {
	if len(transcript) > maxTranscriptChars {
		cut := transcript[:maxTranscriptChars]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		transcript = cut
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You select the most engaging moments from a video transcript for short-form clips.\n\n")
	fmt.Fprintf(&b, "The video is %.0f seconds long. Choose up to %d non-overlapping segments of roughly %d seconds each.\n\n",
		videoDuration, maxClips, clipDuration)
	b.WriteString("Respond with ONLY a JSON array, no prose and no code fences. Each element:\n")
	b.WriteString(`{"title": "short descriptive title", "start": <seconds>, "end": <seconds>, "relevance": <0.0-1.0>}`)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}
