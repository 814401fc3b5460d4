// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles renders status words and secondary detail for one output
// stream.
type Styles struct {
	good    lipgloss.Style
	warning lipgloss.Style
	bad     lipgloss.Style
	faint   lipgloss.Style
}

// NewStyles builds styles for w. Mode is "auto" (color only when w is
// a terminal), "always", or "never".
func NewStyles(w io.Writer, mode string) (*Styles, error) {
	renderer := lipgloss.NewRenderer(w)
	switch mode {
	case "", "auto":
		if !IsTerminal(w) {
			renderer.SetColorProfile(termenv.Ascii)
		}
	case "always":
		// Piped output does not report a profile; pick one explicitly
		// so styles still emit escape sequences.
		renderer.SetOutput(termenv.NewOutput(w, termenv.WithProfile(termenv.ANSI256)))
		renderer.SetColorProfile(termenv.ANSI256)
	case "never":
		renderer.SetColorProfile(termenv.Ascii)
	default:
		return nil, Validation("invalid color mode %q (want auto, always or never)", mode)
	}
	return &Styles{
		good:    renderer.NewStyle().Foreground(lipgloss.ANSIColor(2)),
		warning: renderer.NewStyle().Foreground(lipgloss.ANSIColor(3)),
		bad:     renderer.NewStyle().Foreground(lipgloss.ANSIColor(1)).Bold(true),
		faint:   renderer.NewStyle().Faint(true),
	}, nil
}

// Status renders a status word in the color for its outcome.
func (s *Styles) Status(word string) string {
	switch word {
	case "patched", "already_patched", "already", "ok":
		return s.good.Render(word)
	case "unpatched", "skipped":
		return s.warning.Render(word)
	default:
		return s.bad.Render(word)
	}
}

// Faint renders secondary detail such as digests and hints.
func (s *Styles) Faint(text string) string { return s.faint.Render(text) }
