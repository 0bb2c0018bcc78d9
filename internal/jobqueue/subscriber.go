// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package jobqueue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/supoclip/supoclip/internal/metrics"
)

// Subscriber wraps the Watermill NATS subscriber with durable JetStream
// consumption. The worker uses it for clip jobs; the WebSocket hub uses a
// second instance for progress events.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a durable JetStream subscriber bound to the task
// stream. Binding is required because the subjects contain wildcards and
// stream names cannot.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{
		subscriber: sub,
		config:     *cfg,
		logger:     logger,
	}, nil
}

// Subscribe returns a channel of messages for the given topic. The channel
// closes when the context is canceled or the subscriber is closed.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// JobHandler consumes clip jobs and dispatches them to a handler function.
// A handler error nacks the message so JetStream redelivers it, up to the
// consumer's MaxDeliver limit.
type JobHandler struct {
	subscriber *Subscriber
	logger     watermill.LoggerAdapter
	handle     func(ctx context.Context, job *ClipJob) error
}

// NewJobHandler creates a handler for the clip job subject.
func (s *Subscriber) NewJobHandler(fn func(ctx context.Context, job *ClipJob) error) *JobHandler {
	return &JobHandler{
		subscriber: s,
		logger:     s.logger,
		handle:     fn,
	}
}

// Run consumes jobs until the context is canceled. It returns nil on
// cancellation so supervisors treat it as a normal stop.
func (h *JobHandler) Run(ctx context.Context) error {
	messages, err := h.subscriber.Subscribe(ctx, JobSubject)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", JobSubject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			h.process(ctx, msg)
		}
	}
}

func (h *JobHandler) process(ctx context.Context, msg *message.Message) {
	metrics.QueueConsumed.Inc()

	job, err := DeserializeJob(msg.Payload)
	if err != nil {
		// A payload that cannot parse will never succeed; ack to drop it.
		h.logger.Error("Dropping malformed job message", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		msg.Ack()
		return
	}

	if err := h.handle(ctx, job); err != nil {
		h.logger.Error("Job handler failed, message will be redelivered", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"task_id":      job.TaskID,
		})
		metrics.QueueRedelivered.Inc()
		msg.Nack()
		return
	}

	msg.Ack()
}
