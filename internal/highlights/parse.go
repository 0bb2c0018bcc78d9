// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package highlights

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// parseSegments extracts the JSON array from a model response and normalizes
// each segment. Models wrap JSON in code fences or prose despite
// instructions, so the array is located positionally.
func parseSegments(raw string, maxClips int, clipDuration, videoDuration float64) ([]Segment, error) {
	jsonText := extractArray(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var parsed []Segment
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}

	segments := make([]Segment, 0, len(parsed))
	for _, seg := range parsed {
		normalized, ok := normalize(seg, clipDuration, videoDuration)
		if !ok {
			continue
		}
		segments = append(segments, normalized)
		if len(segments) >= maxClips {
			break
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no usable segments in response")
	}
	return segments, nil
}

// extractArray returns the outermost bracketed array in raw.
func extractArray(raw string) string {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// normalize clamps a segment to the video bounds and the target clip length.
// Returns false for segments that cannot be repaired.
func normalize(seg Segment, clipDuration, videoDuration float64) (Segment, bool) {
	if seg.Start < 0 {
		seg.Start = 0
	}
	if videoDuration > 0 && seg.Start >= videoDuration {
		return seg, false
	}
	if seg.End <= seg.Start {
		seg.End = seg.Start + clipDuration
	}
	if seg.End-seg.Start > clipDuration {
		seg.End = seg.Start + clipDuration
	}
	if videoDuration > 0 && seg.End > videoDuration {
		seg.End = videoDuration
	}
	if seg.End-seg.Start < 1 {
		return seg, false
	}

	if seg.Relevance < 0 {
		seg.Relevance = 0
	}
	if seg.Relevance > 1 {
		seg.Relevance = 1
	}
	if seg.Title == "" {
		seg.Title = "Highlight"
	}
	return seg, true
}
