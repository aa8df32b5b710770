// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scholar-tui/internal/ui/styles"
)

// ConfirmResultMsg reports the answer of a Confirm dialog. Tag identifies
// what was being confirmed.
type ConfirmResultMsg struct {
	Tag       string
	Confirmed bool
}

// Confirm is a modal yes/no dialog. The zero value is closed.
type Confirm struct {
	open     bool
	question string
	tag      string
	yes      bool
}

// Open shows the dialog. The "No" button starts focused.
func (c *Confirm) Open(tag, question string) {
	c.open = true
	c.tag = tag
	c.question = question
	c.yes = false
}

// IsOpen reports whether the dialog is shown.
func (c Confirm) IsOpen() bool { return c.open }

// Update handles keys while the dialog is open. y/n answer directly;
// left/right/tab move focus and enter answers with the focused button.
func (c Confirm) Update(msg tea.Msg) (Confirm, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !c.open || !ok {
		return c, nil
	}

	switch key.String() {
	case "y", "Y":
		return c.answer(true)
	case "n", "N", "esc":
		return c.answer(false)
	case "left", "right", "tab", "shift+tab", "h", "l":
		c.yes = !c.yes
	case "enter":
		return c.answer(c.yes)
	}
	return c, nil
}

func (c Confirm) answer(yes bool) (Confirm, tea.Cmd) {
	tag := c.tag
	c.open = false
	return c, func() tea.Msg { return ConfirmResultMsg{Tag: tag, Confirmed: yes} }
}

// View renders the dialog, or "" when closed.
func (c Confirm) View(theme *styles.Theme) string {
	if !c.open {
		return ""
	}
	yes, no := theme.Button, theme.ButtonActive
	if c.yes {
		yes, no = theme.ButtonActive, theme.Button
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yes.Render("Yes"), no.Render("No"))
	return theme.Dialog.Render(c.question + "\n\n" + buttons)
}
