// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// checkSettings handles the .env file and credential presence. Without a
// settings file, at least one credential must already be exported or the
// stack cannot do anything useful.
func (c *Checker) checkSettings() []Result {
	var results []Result

	if _, err := os.Stat(c.opts.EnvFile); err != nil {
		if !hasAnyCredential() {
			return []Result{{
				Name: "Settings",
				Detail: fmt.Sprintf("%s not found and no API keys in the environment; create it with "+
					"ASSEMBLY_AI_API_KEY and one of OPENAI_API_KEY / GOOGLE_API_KEY / ANTHROPIC_API_KEY", c.opts.EnvFile),
			}}
		}
		results = append(results, Result{
			Name:   "Settings",
			Passed: true,
			Detail: fmt.Sprintf("%s not found, using exported environment", c.opts.EnvFile),
		})
	} else {
		if err := gotenv.Load(c.opts.EnvFile); err != nil {
			return []Result{{
				Name:   "Settings",
				Detail: fmt.Sprintf("failed to load %s: %v", c.opts.EnvFile, err),
			}}
		}
		results = append(results, Result{
			Name:   "Settings",
			Passed: true,
			Detail: c.opts.EnvFile + " loaded",
		})
	}

	if os.Getenv("ASSEMBLY_AI_API_KEY") == "" {
		results = append(results, Result{
			Name:   "Transcription key",
			Warn:   true,
			Detail: "ASSEMBLY_AI_API_KEY is not set; transcription will fail at runtime",
		})
	} else {
		results = append(results, Result{Name: "Transcription key", Passed: true, Detail: "ASSEMBLY_AI_API_KEY set"})
	}

	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		results = append(results, Result{
			Name:   "LLM key",
			Warn:   true,
			Detail: "no LLM API key set; highlight selection will fail at runtime",
		})
	} else {
		results = append(results, Result{Name: "LLM key", Passed: true, Detail: "LLM credentials present"})
	}

	return results
}

// checkDocker verifies the docker binary exists and the engine answers.
func (c *Checker) checkDocker(ctx context.Context) Result {
	const name = "Docker engine"

	if _, err := c.opts.LookPath("docker"); err != nil {
		return Result{Name: name, Detail: "docker binary not found in PATH"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()

	if out, err := c.opts.Runner(probeCtx, "docker", "info"); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("docker daemon unreachable: %s", firstLine(out, err))}
	}
	return Result{Name: name, Passed: true, Detail: "daemon reachable"}
}

// checkCompose resolves which compose form this host speaks. The plugin
// form wins; the legacy standalone binary is the fallback.
func (c *Checker) checkCompose(ctx context.Context) Result {
	const name = "Docker Compose"

	probeCtx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()

	if _, err := c.opts.Runner(probeCtx, "docker", "compose", "version"); err == nil {
		c.compose = []string{"docker", "compose"}
		return Result{Name: name, Passed: true, Detail: "docker compose plugin"}
	}
	if _, err := c.opts.Runner(probeCtx, "docker-compose", "version"); err == nil {
		c.compose = []string{"docker-compose"}
		return Result{Name: name, Passed: true, Detail: "legacy docker-compose"}
	}
	return Result{Name: name, Detail: "neither 'docker compose' nor 'docker-compose' is available"}
}

// composeUp builds and starts the stack. Re-running against an already
// running stack is a no-op rebuild, not an error.
func (c *Checker) composeUp(ctx context.Context) Result {
	const name = "Compose up"

	upCtx, cancel := context.WithTimeout(ctx, 10*c.opts.CommandTimeout)
	defer cancel()

	args := append(c.compose[1:], "up", "--build", "-d")
	if out, err := c.opts.Runner(upCtx, c.compose[0], args...); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("compose up failed: %s", firstLine(out, err))}
	}
	return Result{Name: name, Passed: true, Detail: "services started"}
}

// waitHealthy polls the readiness endpoint with exponential backoff until
// it answers 200 or the timeout expires.
func (c *Checker) waitHealthy(ctx context.Context) Result {
	const name = "API ready"

	deadline := time.Now().Add(c.opts.HealthTimeout)
	delay := 500 * time.Millisecond
	var lastErr string

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.HealthURL, nil)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("bad health URL: %v", err)}
		}
		resp, err := c.opts.HTTPClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return Result{Name: name, Passed: true, Detail: c.opts.HealthURL + " answered 200"}
			}
			lastErr = fmt.Sprintf("status %d", resp.StatusCode)
		} else {
			lastErr = err.Error()
		}

		select {
		case <-ctx.Done():
			return Result{Name: name, Detail: "canceled while waiting for readiness"}
		case <-time.After(delay):
		}
		if delay *= 2; delay > 5*time.Second {
			delay = 5 * time.Second
		}
	}

	return Result{Name: name, Detail: fmt.Sprintf("not ready after %s (last: %s)", c.opts.HealthTimeout, lastErr)}
}

// firstLine condenses command output and error into one diagnostic line.
func firstLine(out []byte, err error) string {
	text := strings.TrimSpace(string(out))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return err.Error()
	}
	return text
}
