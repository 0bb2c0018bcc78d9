// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package jobqueue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
)

// Broadcaster receives progress events for fan-out. Satisfied by the
// WebSocket hub.
type Broadcaster interface {
	BroadcastProgress(event *ProgressEvent)
}

// ProgressForwarder bridges the progress subjects to a Broadcaster so
// browser clients see pipeline transitions as they happen.
type ProgressForwarder struct {
	subscriber *Subscriber
	target     Broadcaster
	logger     watermill.LoggerAdapter
}

// NewProgressForwarder creates a forwarder for tasks.progress.*.
func NewProgressForwarder(subscriber *Subscriber, target Broadcaster) *ProgressForwarder {
	return &ProgressForwarder{
		subscriber: subscriber,
		target:     target,
		logger:     subscriber.logger,
	}
}

// Run forwards progress events until the context is canceled. Malformed
// events are acked and dropped; progress is advisory and never worth a
// redelivery loop.
func (f *ProgressForwarder) Run(ctx context.Context) error {
	messages, err := f.subscriber.Subscribe(ctx, ProgressSubject)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ProgressSubject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := DeserializeProgress(msg.Payload)
			if err != nil {
				f.logger.Error("Dropping malformed progress event", err, watermill.LogFields{
					"message_uuid": msg.UUID,
				})
				msg.Ack()
				continue
			}
			f.target.BroadcastProgress(event)
			msg.Ack()
		}
	}
}
