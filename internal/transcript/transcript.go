// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"github.com/google/uuid"

	"github.com/jeranaias/scholar-tui/internal/api"
)

// =============================================================================
// BLOCKS
// =============================================================================

// Kind identifies what a block shows.
type Kind int

const (
	// KindUser is a human message.
	KindUser Kind = iota
	// KindAssistant is an assistant message, possibly still streaming.
	KindAssistant
	// KindTool is the tool status line of a response.
	KindTool
	// KindPlaceholder is the transient "Thinking" / "Processing..." line.
	KindPlaceholder
	// KindDocuments is a group of document cards.
	KindDocuments
	// KindInterrupt is a human-input form.
	KindInterrupt
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindTool:
		return "tool"
	case KindPlaceholder:
		return "placeholder"
	case KindDocuments:
		return "documents"
	case KindInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Block is one displayed element of the transcript.
type Block struct {
	ID   string
	Kind Kind
	Text string

	// Final is set on assistant blocks once their stream ended.
	Final bool

	// Cards holds grouped fragments of a documents block.
	Cards []Card

	// Interrupt and Disabled describe an interrupt block.
	Interrupt api.Interrupt
	Disabled  bool
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is an ordered list of blocks. It is not safe for concurrent use;
// it is owned by the single UI loop.
type Transcript struct {
	blocks []Block

	// in-flight response blocks
	toolID      string
	assistantID string
	interruptID string
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// Blocks returns a copy of the blocks in display order.
func (t *Transcript) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// Len returns the number of blocks.
func (t *Transcript) Len() int {
	return len(t.blocks)
}

// Reset removes every block.
func (t *Transcript) Reset() {
	t.blocks = nil
	t.toolID = ""
	t.assistantID = ""
	t.interruptID = ""
}

// LoadHistory replaces the transcript with turns, which arrive newest first.
// Each turn renders as its request, its response, then its documents.
func (t *Transcript) LoadHistory(turns []api.Turn) {
	t.Reset()
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Request != nil {
			t.append(Block{Kind: KindUser, Text: turn.Request.Content})
		}
		if turn.Response != nil {
			t.append(Block{Kind: KindAssistant, Text: turn.Response.Content, Final: true})
		}
		t.AddDocuments(turn.Documents)
	}
}

// AppendUser adds a human message.
func (t *Transcript) AppendUser(text string) {
	t.append(Block{Kind: KindUser, Text: text})
}

// ShowPlaceholder replaces any placeholder with one showing text.
func (t *Transcript) ShowPlaceholder(text string) {
	t.RemovePlaceholder()
	t.append(Block{Kind: KindPlaceholder, Text: text})
}

// RemovePlaceholder removes the placeholder, if present.
func (t *Transcript) RemovePlaceholder() {
	t.removeWhere(func(b Block) bool { return b.Kind == KindPlaceholder })
}

// HasPlaceholder reports whether a placeholder is shown.
func (t *Transcript) HasPlaceholder() bool {
	for _, b := range t.blocks {
		if b.Kind == KindPlaceholder {
			return true
		}
	}
	return false
}

// BeginResponse adds an empty tool status line and an empty assistant
// message for a new stream.
func (t *Transcript) BeginResponse() {
	t.toolID = t.append(Block{Kind: KindTool})
	t.assistantID = t.append(Block{Kind: KindAssistant})
}

// AppendToken clears the tool status line and appends text to the
// in-progress assistant message.
func (t *Transcript) AppendToken(text string) {
	if b := t.find(t.toolID); b != nil {
		b.Text = ""
	}
	if text == "" {
		return
	}
	b := t.find(t.assistantID)
	if b == nil {
		t.assistantID = t.append(Block{Kind: KindAssistant})
		b = t.find(t.assistantID)
	}
	b.Text += text
}

// SetToolStatus replaces the text of the tool status line, creating the line
// if the response has none.
func (t *Transcript) SetToolStatus(text string) {
	b := t.find(t.toolID)
	if b == nil {
		t.toolID = t.append(Block{Kind: KindTool})
		b = t.find(t.toolID)
	}
	b.Text = text
}

// DiscardResponse removes the in-progress tool line and assistant message.
func (t *Transcript) DiscardResponse() {
	toolID, assistantID := t.toolID, t.assistantID
	t.removeWhere(func(b Block) bool { return b.ID == toolID || b.ID == assistantID })
	t.toolID = ""
	t.assistantID = ""
}

// FinishResponse marks the in-progress assistant message final. Empty tool
// and assistant blocks are dropped.
func (t *Transcript) FinishResponse() {
	if b := t.find(t.assistantID); b != nil {
		b.Final = true
	}
	toolID, assistantID := t.toolID, t.assistantID
	t.removeWhere(func(b Block) bool {
		return (b.ID == toolID || b.ID == assistantID) && b.Text == ""
	})
	t.toolID = ""
	t.assistantID = ""
}

// ResponseText returns the text of the in-progress assistant message.
func (t *Transcript) ResponseText() string {
	if b := t.find(t.assistantID); b != nil {
		return b.Text
	}
	return ""
}

// ShowInterrupt adds an interrupt form block.
func (t *Transcript) ShowInterrupt(in api.Interrupt) {
	t.interruptID = t.append(Block{Kind: KindInterrupt, Interrupt: in, Text: in.Prompt()})
}

// DisableInterrupt disables the controls of the current interrupt form.
func (t *Transcript) DisableInterrupt() {
	if b := t.find(t.interruptID); b != nil {
		b.Disabled = true
	}
}

// ActiveInterrupt returns the interrupt form still accepting input, if any.
func (t *Transcript) ActiveInterrupt() (Block, bool) {
	b := t.find(t.interruptID)
	if b == nil || b.Disabled {
		return Block{}, false
	}
	return *b, true
}

// AddDocuments adds a documents block grouping frags. Nothing is added for
// an empty list.
func (t *Transcript) AddDocuments(frags []api.Fragment) {
	cards := GroupFragments(frags)
	if len(cards) == 0 {
		return
	}
	t.append(Block{Kind: KindDocuments, Cards: cards})
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (t *Transcript) append(b Block) string {
	b.ID = uuid.NewString()
	t.blocks = append(t.blocks, b)
	return b.ID
}

func (t *Transcript) find(id string) *Block {
	if id == "" {
		return nil
	}
	for i := range t.blocks {
		if t.blocks[i].ID == id {
			return &t.blocks[i]
		}
	}
	return nil
}

func (t *Transcript) removeWhere(match func(Block) bool) {
	kept := t.blocks[:0]
	for _, b := range t.blocks {
		if !match(b) {
			kept = append(kept, b)
		}
	}
	// Clear the tail so removed blocks can be collected.
	for i := len(kept); i < len(t.blocks); i++ {
		t.blocks[i] = Block{}
	}
	t.blocks = kept
}
