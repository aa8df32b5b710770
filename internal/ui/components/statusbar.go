// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scholar-tui/internal/ui/styles"
	"github.com/jeranaias/scholar-tui/internal/util"
)

// Shortcut is one key hint of the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the bottom line: a status on the left and key hints on
// the right. Hints are dropped from the end until the line fits.
type StatusBar struct {
	Status    string
	Shortcuts []Shortcut
}

// View renders the bar at width cells.
func (s StatusBar) View(theme *styles.Theme, width int) string {
	inner := width - 2
	if inner < 0 {
		inner = 0
	}

	left := util.TruncateWidth(s.Status, inner)
	hints := s.Shortcuts
	for {
		right := renderShortcuts(theme, hints)
		gap := inner - util.StringWidth(left) - lipgloss.Width(right)
		if gap >= 1 || len(hints) == 0 {
			if gap < 0 {
				gap = 0
			}
			return theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
		}
		hints = hints[:len(hints)-1]
	}
}

func renderShortcuts(theme *styles.Theme, hints []Shortcut) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, theme.ShortcutKey.Render(h.Key)+" "+theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
