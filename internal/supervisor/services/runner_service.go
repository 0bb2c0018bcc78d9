// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package services

import "context"

// ContextRunner is any component whose lifetime is bounded by a context.
// Satisfied by the WebSocket hub (RunWithContext), the job handler (Run),
// and the progress forwarder (Run).
type ContextRunner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to ContextRunner.
type RunnerFunc func(ctx context.Context) error

// Run implements ContextRunner.
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// RunnerService supervises any ContextRunner under a stable name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps a runner. The name shows up in supervisor logs.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

func (s *RunnerService) String() string { return s.name }
