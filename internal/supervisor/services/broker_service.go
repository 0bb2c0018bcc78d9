// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package services

import (
	"context"
	"errors"
	"time"
)

// Broker matches the embedded NATS server's lifecycle. The server is
// started before the tree runs, since publishers and subscribers connect
// to it during wiring.
type Broker interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// BrokerService holds the embedded broker under supervision: it watches
// for the server dying unexpectedly and shuts it down on tree exit.
type BrokerService struct {
	broker          Broker
	shutdownTimeout time.Duration
	checkInterval   time.Duration
}

// NewBrokerService wraps an already-running broker.
func NewBrokerService(broker Broker, shutdownTimeout time.Duration) *BrokerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &BrokerService{
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   5 * time.Second,
	}
}

// Serve implements suture.Service. An embedded server that stops running
// outside a shutdown is a failure; returning the error lets the
// supervisor escalate, since the server cannot be restarted in place.
func (s *BrokerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.broker.IsRunning() {
				return errors.New("embedded NATS server stopped unexpectedly")
			}
		}
	}
}

func (s *BrokerService) String() string { return "nats-broker" }
