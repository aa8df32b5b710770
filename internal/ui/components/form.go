// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scholar-tui/internal/ui/styles"
)

// =============================================================================
// FORM MESSAGES
// =============================================================================

// FormSubmitMsg is sent when enter is pressed on a form.
type FormSubmitMsg struct{ ID string }

// FormCancelMsg is sent when esc is pressed on a form.
type FormCancelMsg struct{ ID string }

// FormResetMsg is sent when ctrl+r is pressed on a form.
type FormResetMsg struct{ ID string }

// =============================================================================
// FIELDS
// =============================================================================

// Field is one form row: a text input, or a choice among Options when
// Options is set.
type Field struct {
	Key   string
	Label string
	Input textinput.Model

	Options  []string
	Multi    bool
	selected map[string]bool
	cursor   int
}

// TextField creates a text field.
func TextField(key, label, value, placeholder string) Field {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 255
	in.SetValue(value)
	return Field{Key: key, Label: label, Input: in}
}

// ChoiceField creates a choice field. With multi set any number of options
// can be selected; otherwise selecting one clears the rest.
func ChoiceField(key, label string, options []string, multi bool, selected ...string) Field {
	f := Field{Key: key, Label: label, Options: options, Multi: multi, selected: make(map[string]bool)}
	for _, s := range selected {
		f.selected[s] = true
	}
	return f
}

// IsChoice reports whether the field has options.
func (f *Field) IsChoice() bool { return f.Options != nil }

// Selected returns the selected options in option order.
func (f *Field) Selected() []string {
	var out []string
	for _, o := range f.Options {
		if f.selected[o] {
			out = append(out, o)
		}
	}
	return out
}

func (f *Field) toggle() {
	if len(f.Options) == 0 {
		return
	}
	o := f.Options[f.cursor]
	if f.Multi {
		f.selected[o] = !f.selected[o]
		return
	}
	was := f.selected[o]
	f.selected = map[string]bool{o: !was}
}

// =============================================================================
// FORM
// =============================================================================

// Form is a vertical list of fields. tab and shift+tab move between fields;
// on a choice field left/right move between options and space toggles one.
type Form struct {
	ID     string
	Title  string
	Fields []Field
	Err    string

	focus int
}

// NewForm creates a form focused on its first field.
func NewForm(id, title string, fields ...Field) Form {
	f := Form{ID: id, Title: title, Fields: fields}
	f.setFocus(0)
	return f
}

// Value returns the trimmed text of the field with key.
func (f *Form) Value(key string) string {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			return strings.TrimSpace(f.Fields[i].Input.Value())
		}
	}
	return ""
}

// Selected returns the selected options of the choice field with key.
func (f *Form) Selected(key string) []string {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			return f.Fields[i].Selected()
		}
	}
	return nil
}

// Focused returns the index of the focused field.
func (f *Form) Focused() int { return f.focus }

func (f *Form) setFocus(i int) {
	if len(f.Fields) == 0 {
		return
	}
	i = (i + len(f.Fields)) % len(f.Fields)
	for j := range f.Fields {
		if j == i && !f.Fields[j].IsChoice() {
			f.Fields[j].Input.Focus()
		} else {
			f.Fields[j].Input.Blur()
		}
	}
	f.focus = i
}

// Update handles a key press.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(f.Fields) == 0 {
		return f, nil
	}
	id := f.ID

	switch key.String() {
	case "enter":
		return f, func() tea.Msg { return FormSubmitMsg{ID: id} }
	case "esc":
		return f, func() tea.Msg { return FormCancelMsg{ID: id} }
	case "ctrl+r":
		return f, func() tea.Msg { return FormResetMsg{ID: id} }
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return f, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return f, nil
	}

	field := &f.Fields[f.focus]
	if field.IsChoice() {
		switch key.String() {
		case "left", "h":
			if field.cursor > 0 {
				field.cursor--
			}
		case "right", "l":
			if field.cursor < len(field.Options)-1 {
				field.cursor++
			}
		case " ", "x":
			field.toggle()
		}
		return f, nil
	}

	var cmd tea.Cmd
	field.Input, cmd = field.Input.Update(msg)
	return f, cmd
}

// View renders the form at width cells.
func (f Form) View(theme *styles.Theme, width int) string {
	labelWidth := 0
	for _, fl := range f.Fields {
		if w := lipgloss.Width(fl.Label); w > labelWidth {
			labelWidth = w
		}
	}
	label := theme.FieldLabel.Width(labelWidth + 2)

	var rows []string
	if f.Title != "" {
		rows = append(rows, theme.InterruptTitle.Render(f.Title), "")
	}
	for i, fl := range f.Fields {
		marker := "  "
		if i == f.focus {
			marker = theme.ShortcutKey.Render("> ")
		}
		var value string
		if fl.IsChoice() {
			value = renderOptions(theme, fl, i == f.focus)
		} else {
			fl.Input.Width = max(10, width-labelWidth-6)
			value = fl.Input.View()
		}
		rows = append(rows, marker+label.Render(fl.Label)+value)
	}
	if f.Err != "" {
		rows = append(rows, "", theme.FieldError.Render(f.Err))
	}
	rows = append(rows, "", theme.ShortcutDesc.Render("enter apply  esc cancel  ctrl+r reset  tab next"))
	return strings.Join(rows, "\n")
}

func renderOptions(theme *styles.Theme, fl Field, focused bool) string {
	if len(fl.Options) == 0 {
		return theme.ShortcutDesc.Render("(none)")
	}
	parts := make([]string, 0, len(fl.Options))
	for j, o := range fl.Options {
		item := styles.Checkbox(fl.selected[o]) + " " + o
		if focused && j == fl.cursor {
			item = theme.TableSelected.Render(item)
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, "  ")
}
