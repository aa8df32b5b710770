// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scholar-tui/internal/api"
	core "github.com/jeranaias/scholar-tui/internal/chat"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/ui/components"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

const recipientFormID = "recipient"

// interruptForm is the input state of the pending interrupt block.
type interruptForm struct {
	blockID   string
	interrupt api.Interrupt

	// recipient fields
	form components.Form

	// focused confirmation button: 0 is Send
	button int
}

func newInterruptForm(b transcript.Block) *interruptForm {
	f := &interruptForm{blockID: b.ID, interrupt: b.Interrupt}
	if req, ok := b.Interrupt.(api.RecipientInfoRequest); ok {
		name := components.TextField("name", req.NameLabel, "", "Recipient name")
		email := components.TextField("email", req.EmailLabel, "", "email@example.com")
		f.form = components.NewForm(recipientFormID, "", name, email)
	}
	return f
}

// update handles a key press. It returns the resume payload once the form
// is answered, or nil.
func (f *interruptForm) update(msg tea.KeyMsg) (payload any, cmd tea.Cmd) {
	switch f.interrupt.(type) {
	case api.RecipientInfoRequest:
		switch msg.String() {
		case "enter":
			info, err := core.RecipientPayload(f.form.Value("name"), f.form.Value("email"))
			if err != nil {
				f.form.Err = validate.Message(err)
				return nil, nil
			}
			return info, nil
		case "esc":
			return core.CancelRecipient(), nil
		}
		f.form, cmd = f.form.Update(msg)
		return nil, cmd

	case api.ConfirmationRequest:
		switch msg.String() {
		case "left", "right", "tab", "h", "l":
			f.button = 1 - f.button
		case "y":
			return core.ConfirmPayload(true), nil
		case "n", "esc":
			return core.ConfirmPayload(false), nil
		case "enter":
			return core.ConfirmPayload(f.button == 0), nil
		}
		return nil, nil

	default:
		switch msg.String() {
		case "enter", "esc":
			return core.DismissPayload(), nil
		}
		return nil, nil
	}
}

// renderInterrupt renders an interrupt block. form is nil for answered
// blocks.
func renderInterrupt(theme *styles.Theme, b transcript.Block, form *interruptForm, width int) string {
	box := theme.InterruptBox
	if b.Disabled || form == nil {
		box = theme.InterruptDisabled
	}
	inner := max(20, width-4)

	var sb strings.Builder
	sb.WriteString(theme.InterruptTitle.Render(b.Interrupt.Prompt()))
	sb.WriteString("\n\n")

	buttons := func(primary, secondary string) string {
		active := 0
		if form != nil {
			active = form.button
		}
		p, s := theme.ButtonActive, theme.Button
		if active == 1 {
			p, s = theme.Button, theme.ButtonActive
		}
		if form == nil {
			p, s = theme.Button, theme.Button
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, p.Render(primary), s.Render(secondary))
	}

	switch in := b.Interrupt.(type) {
	case api.RecipientInfoRequest:
		if form != nil {
			sb.WriteString(form.form.View(theme, inner))
			sb.WriteString("\n")
		} else {
			sb.WriteString(theme.FieldLabel.Render(in.NameLabel + ", " + in.EmailLabel))
			sb.WriteString("\n")
		}
		sb.WriteString(buttons("Submit", "Cancel"))

	case api.ConfirmationRequest:
		p := in.Preview
		sb.WriteString(theme.FieldLabel.Render("To: ") + p.ToName + " <" + p.ToEmail + ">\n")
		sb.WriteString(theme.FieldLabel.Render("Subject: ") + p.Subject + "\n")
		sb.WriteString(theme.FieldLabel.Render("Preview: ") + p.BodyPreview + "\n\n")
		sb.WriteString(buttons("Send", "Cancel"))

	case api.UnknownInterrupt:
		kind := in.Type
		if kind == "" {
			kind = "(none)"
		}
		sb.WriteString(theme.FieldLabel.Render("Unsupported request type: ") + kind + "\n\n")
		if form != nil {
			sb.WriteString(theme.ButtonActive.Render("Dismiss"))
		} else {
			sb.WriteString(theme.Button.Render("Dismiss"))
		}
	}

	return box.Width(width - 2).Render(sb.String())
}
