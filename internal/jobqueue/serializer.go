// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package jobqueue

import (
	"fmt"

	"github.com/goccy/go-json"
)

// SerializeJob validates and marshals a clip job to JSON.
func SerializeJob(job *ClipJob) ([]byte, error) {
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("validate job: %w", err)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return data, nil
}

// DeserializeJob unmarshals and validates a clip job.
func DeserializeJob(data []byte) (*ClipJob, error) {
	var job ClipJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return &job, nil
}

// SerializeProgress validates and marshals a progress event to JSON.
func SerializeProgress(event *ProgressEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate progress event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal progress event: %w", err)
	}
	return data, nil
}

// DeserializeProgress unmarshals and validates a progress event.
func DeserializeProgress(data []byte) (*ProgressEvent, error) {
	var event ProgressEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal progress event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid progress event: %w", err)
	}
	return &event, nil
}
