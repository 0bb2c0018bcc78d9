// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Package preflight validates the operator's environment before bringing
// the stack up: credentials, the Docker engine, a compose binary, and
// finally the services' own readiness endpoint.
package preflight

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// Result reports the outcome of a single preflight check.
//
// A failed check with Warn set does not stop the run; the original
// deployment treats missing individual credentials as survivable because
// the server starts degraded and reports them on /health.
type Result struct {
	Name   string
	Passed bool
	Warn   bool
	Detail string
}

// Fatal reports whether this result should abort the run.
func (r Result) Fatal() bool {
	return !r.Passed && !r.Warn
}

// CommandRunner executes an external command and returns combined output.
// Injectable so tests run without Docker installed.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures a preflight run.
type Options struct {
	// EnvFile is the settings file to load. Default ".env".
	EnvFile string

	// HealthURL is polled after compose up. Default targets the local
	// deployment's readiness endpoint.
	HealthURL string

	// HealthTimeout bounds the readiness poll. Default 2 minutes.
	HealthTimeout time.Duration

	// CommandTimeout bounds each probe command. Default 30 seconds.
	// Compose up gets 10x this, image builds are slow.
	CommandTimeout time.Duration

	Runner     CommandRunner
	LookPath   func(file string) (string, error)
	HTTPClient *http.Client
}

func (o *Options) applyDefaults() {
	if o.EnvFile == "" {
		o.EnvFile = ".env"
	}
	if o.HealthURL == "" {
		o.HealthURL = "http://localhost:8000/api/v1/health/ready"
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = 2 * time.Minute
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.Runner == nil {
		o.Runner = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		}
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
}

// Checker runs the ordered preflight sequence.
type Checker struct {
	opts    Options
	compose []string
}

// NewChecker creates a checker with defaults applied.
func NewChecker(opts Options) *Checker {
	opts.applyDefaults()
	return &Checker{opts: opts}
}

// Run executes every check in order and returns all results. ok is false
// when any fatal check failed; later checks are skipped once a fatal
// failure occurs since each depends on the previous.
func (c *Checker) Run(ctx context.Context) (results []Result, ok bool) {
	steps := []func(context.Context) []Result{
		func(_ context.Context) []Result { return c.checkSettings() },
		func(ctx context.Context) []Result { return []Result{c.checkDocker(ctx)} },
		func(ctx context.Context) []Result { return []Result{c.checkCompose(ctx)} },
		func(ctx context.Context) []Result { return []Result{c.composeUp(ctx)} },
		func(ctx context.Context) []Result { return []Result{c.waitHealthy(ctx)} },
	}

	for _, step := range steps {
		stepResults := step(ctx)
		results = append(results, stepResults...)
		for _, r := range stepResults {
			if r.Fatal() {
				return results, false
			}
		}
	}
	return results, true
}

// RunChecksOnly validates settings and tooling without touching the
// stack: no compose up, no readiness poll.
func (c *Checker) RunChecksOnly(ctx context.Context) (results []Result, ok bool) {
	ok = true
	results = c.checkSettings()
	for _, r := range results {
		if r.Fatal() {
			return results, false
		}
	}
	for _, check := range []func(context.Context) Result{c.checkDocker, c.checkCompose} {
		r := check(ctx)
		results = append(results, r)
		if r.Fatal() {
			return results, false
		}
	}
	return results, ok
}

// hasAnyCredential reports whether transcription or any LLM key is set.
func hasAnyCredential() bool {
	for _, key := range []string{"ASSEMBLY_AI_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}
