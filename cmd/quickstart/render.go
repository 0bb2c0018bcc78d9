// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/supoclip/supoclip/internal/preflight"
)

// renderResults prints the check outcomes as a status table. Colors are
// suppressed when the destination is not a terminal.
func renderResults(w io.Writer, results []preflight.Result) {
	colorize := shouldColorize(w)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Check", "Status", "Detail"})

	for _, r := range results {
		tw.AppendRow(table.Row{r.Name, statusLabel(r, colorize), r.Detail})
	}
	tw.Render()
}

func statusLabel(r preflight.Result, colorize bool) string {
	switch {
	case r.Passed:
		return paint("PASS", text.FgGreen, colorize)
	case r.Warn:
		return paint("WARN", text.FgYellow, colorize)
	default:
		return paint("FAIL", text.FgRed, colorize)
	}
}

func paint(label string, color text.Color, colorize bool) string {
	if !colorize {
		return label
	}
	return color.Sprint(label)
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
