// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Command quickstart validates the host environment and brings the
// SupoClip stack up with Docker Compose.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
