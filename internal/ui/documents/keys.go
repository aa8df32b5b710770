// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

// KeyMap defines the document screen bindings.
type KeyMap struct {
	Back        key.Binding
	Open        key.Binding
	Download    key.Binding
	Delete      key.Binding
	Upload      key.Binding
	Filter      key.Binding
	ResetFilter key.Binding
	Reload      key.Binding
	PrevPage    key.Binding
	NextPage    key.Binding
	PageSize    key.Binding
	Sort        key.Binding
	Dismiss     key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Open:        key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "view")),
		Download:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "download")),
		Delete:      key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Upload:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		Filter:      key.NewBinding(key.WithKeys("f", "ctrl+f"), key.WithHelp("f", "filter")),
		ResetFilter: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset filter")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		PrevPage:    key.NewBinding(key.WithKeys("left", "h", "["), key.WithHelp("←", "prev page")),
		NextPage:    key.NewBinding(key.WithKeys("right", "l", "]"), key.WithHelp("→", "next page")),
		PageSize:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "page size")),
		Sort:        key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "sort")),
		Dismiss:     key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("C-x", "dismiss toast")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Download, k.Upload, k.Delete, k.Filter, k.Sort, k.PrevPage, k.NextPage, k.Back}
}

// tableKeyMap leaves single letters free for screen actions.
func tableKeyMap() table.KeyMap {
	return table.KeyMap{
		LineUp:     key.NewBinding(key.WithKeys("up", "k")),
		LineDown:   key.NewBinding(key.WithKeys("down", "j")),
		PageUp:     key.NewBinding(key.WithKeys("pgup")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown")),
		GotoTop:    key.NewBinding(key.WithKeys("home", "g")),
		GotoBottom: key.NewBinding(key.WithKeys("end", "G")),
	}
}
