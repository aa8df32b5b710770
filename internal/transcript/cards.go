// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import "github.com/jeranaias/scholar-tui/internal/api"

// Card is the fragments of one source file.
type Card struct {
	FileID   string
	FileName string
	Folder   string
	// Lines are the fragment texts in arrival order.
	Lines []string
}

// GroupFragments groups frags by file id. Cards appear in the order their
// file was first seen; lines keep arrival order.
func GroupFragments(frags []api.Fragment) []Card {
	var cards []Card
	index := make(map[string]int)

	for _, f := range frags {
		id := f.Metadata.FileID
		i, ok := index[id]
		if !ok {
			i = len(cards)
			index[id] = i
			cards = append(cards, Card{
				FileID:   id,
				FileName: f.Metadata.OriginalFileName,
				Folder:   f.Metadata.Folder,
			})
		}
		cards[i].Lines = append(cards[i].Lines, f.PageContent)
	}
	return cards
}

// =============================================================================
// SELECTION
// =============================================================================

// Selection is the set of file ids scoping the next prompt, in the order
// they were selected.
type Selection struct {
	ids []string
}

// Toggle adds id if absent, removes it otherwise, and reports whether id is
// now selected.
func (s *Selection) Toggle(id string) bool {
	if id == "" {
		return false
	}
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.ids = nil
}

// IDs returns the selected ids. The result is never nil.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// ShowClear reports whether the clear-selection control should be visible.
func (s *Selection) ShowClear() bool {
	return len(s.ids) > 0
}
