// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// =============================================================================
// METADATA
// =============================================================================

// Category is a classification dimension documents can be tagged with.
type Category struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// SearchPath is a known document folder.
type SearchPath struct {
	Folder string `json:"folder"`
}

// =============================================================================
// FILTERS AND DOCUMENT QUERIES
// =============================================================================

// CategoryFilter restricts results to documents tagged with any of Categories
// in category ID.
type CategoryFilter struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories"`
}

// Filter narrows documents by metadata. It scopes both the document table
// and chat prompts. Dates are YYYY-MM-DD.
type Filter struct {
	File        string           `json:"file,omitempty"`
	Folder      string           `json:"folder,omitempty"`
	Author      string           `json:"author,omitempty"`
	CategoryIDs []CategoryFilter `json:"category_ids,omitempty"`
	CreatedFrom string           `json:"created_from,omitempty"`
	CreatedTo   string           `json:"created_to,omitempty"`
	UpdatedFrom string           `json:"updated_from,omitempty"`
	UpdatedTo   string           `json:"updated_to,omitempty"`
}

// IsZero reports whether no filter criterion is set.
func (f Filter) IsZero() bool {
	return f.File == "" && f.Folder == "" && f.Author == "" && len(f.CategoryIDs) == 0 &&
		f.CreatedFrom == "" && f.CreatedTo == "" && f.UpdatedFrom == "" && f.UpdatedTo == ""
}

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DocumentQuery is the combined filter, pagination and sort body of a
// document listing. Filter fields are flattened into the top-level object.
type DocumentQuery struct {
	Filter
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	SortField string `json:"sort_field,omitempty"`
	SortDir   string `json:"sort_dir,omitempty"`
}

// DocumentPage is one page of document rows.
type DocumentPage struct {
	Items []DocumentRow `json:"items"`
	Total int           `json:"total"`
}

// UnmarshalJSON falls back to the item count when total is missing.
func (p *DocumentPage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Items []DocumentRow `json:"items"`
		Total *int          `json:"total"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Items = wire.Items
	if wire.Total != nil {
		p.Total = *wire.Total
	} else {
		p.Total = len(wire.Items)
	}
	return nil
}

// DocumentRow is the metadata of one uploaded file.
type DocumentRow struct {
	ID               string `json:"id"`
	Folder           string `json:"folder"`
	OriginalFileName string `json:"original_file_name"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
	Author           string `json:"author"`

	// Categories holds the remaining string-valued columns. Category values
	// are stored under their category id.
	Categories map[string]string `json:"-"`
}

var documentRowKnownKeys = map[string]bool{
	"id": true, "folder": true, "original_file_name": true,
	"created_at": true, "updated_at": true, "author": true,
}

// UnmarshalJSON decodes the known columns and collects every other
// string-valued column into Categories.
func (r *DocumentRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		return scalarString(v)
	}

	r.ID = str("id")
	r.Folder = str("folder")
	r.OriginalFileName = str("original_file_name")
	r.CreatedAt = str("created_at")
	r.UpdatedAt = str("updated_at")
	r.Author = str("author")

	r.Categories = make(map[string]string)
	for k, v := range raw {
		if documentRowKnownKeys[k] {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			r.Categories[k] = s
		}
	}
	return nil
}

// MarshalJSON writes the row back in its flat wire form.
func (r DocumentRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r.Categories)+6)
	for k, v := range r.Categories {
		out[k] = v
	}
	out["id"] = r.ID
	out["folder"] = r.Folder
	out["original_file_name"] = r.OriginalFileName
	out["created_at"] = r.CreatedAt
	out["updated_at"] = r.UpdatedAt
	out["author"] = r.Author
	return json.Marshal(out)
}

// CategoryValues joins the row's values for cats, in category order.
func (r DocumentRow) CategoryValues(cats []Category) string {
	var vals []string
	for _, c := range cats {
		if v := r.Categories[c.ID]; v != "" {
			vals = append(vals, v)
		}
	}
	return strings.Join(vals, ", ")
}

// CategoryKeys returns the row's extra column names, sorted.
func (r DocumentRow) CategoryKeys() []string {
	keys := make([]string, 0, len(r.Categories))
	for k := range r.Categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContentChunk is one stored excerpt of a document.
type ContentChunk struct {
	PageContent string `json:"page_content"`
}

// =============================================================================
// CHAT
// =============================================================================

// ChatMessage is a single human or assistant message.
type ChatMessage struct {
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts content as a string or as a list of content blocks.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Type = wire.Type
	m.Content = contentText(wire.Content)
	return nil
}

// FragmentMeta identifies the source file of a fragment.
type FragmentMeta struct {
	FileID           string `json:"file_id"`
	OriginalFileName string `json:"original_file_name"`
	Folder           string `json:"folder"`
}

// Fragment is a retrieved excerpt of a source file.
type Fragment struct {
	PageContent string       `json:"page_content"`
	Metadata    FragmentMeta `json:"metadata"`
}

// Turn is one request/response exchange and the fragments it referenced.
type Turn struct {
	Request   *ChatMessage `json:"request,omitempty"`
	Response  *ChatMessage `json:"response,omitempty"`
	Documents []Fragment   `json:"documents,omitempty"`
}

// graphState is the server's per-turn snapshot. Only last_conversation is read.
type graphState struct {
	LastConversation *Turn `json:"last_conversation"`
}

// PromptRequest is the body of a new prompt.
type PromptRequest struct {
	Query             string   `json:"query"`
	SelectedDocuments []string `json:"selected_documents"`
	Filter            Filter   `json:"filter"`
}

// InterruptStatus reports whether a chat is paused waiting for human input.
type InterruptStatus struct {
	HasInterrupt  bool `json:"has_interrupt"`
	InterruptData []struct {
		Value json.RawMessage `json:"value"`
	} `json:"interrupt_data"`
}

// Pending returns the first pending interrupt, if any.
func (s InterruptStatus) Pending() (Interrupt, bool) {
	if !s.HasInterrupt || len(s.InterruptData) == 0 {
		return nil, false
	}
	return DecodeInterrupt(s.InterruptData[0].Value), true
}

// =============================================================================
// HELPERS
// =============================================================================

// contentText flattens message content, which is either a string or a list
// of blocks carrying text.
func contentText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range blocks {
		var text string
		if err := json.Unmarshal(b, &text); err == nil {
			sb.WriteString(text)
			continue
		}
		var block struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(b, &block); err == nil {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// scalarString renders a JSON string or number as text. Other values yield "".
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
