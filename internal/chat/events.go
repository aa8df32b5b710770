// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/scholar-tui/internal/api"

// Event is an input to Machine.Step. The set of implementations is closed.
type Event interface {
	isEvent()
}

// =============================================================================
// USER EVENTS
// =============================================================================

// Activate switches to ChatID and reloads its history. An empty ChatID
// leaves no chat active.
type Activate struct {
	ChatID string
}

// Submit sends a prompt.
type Submit struct {
	Text string
}

// Resolve answers the pending interrupt. Payload is sent as the resume
// body; nil sends an empty object.
type Resolve struct {
	Payload any
}

// =============================================================================
// RESULT EVENTS
// =============================================================================

// HistoryLoaded reports the chat history request.
type HistoryLoaded struct {
	Epoch uint64
	Turns []api.Turn
	Err   error
}

// InterruptChecked reports the interrupt status request. Interrupt is nil
// when none is pending.
type InterruptChecked struct {
	Epoch     uint64
	Interrupt api.Interrupt
	Err       error
}

// PromptPosted reports the prompt request.
type PromptPosted struct {
	Epoch uint64
	Err   error
}

// StreamOpened reports a stream open. Stream is nil when Err is set.
type StreamOpened struct {
	Epoch  uint64
	Gen    uint64
	Stream *api.Stream
	Err    error
}

// StreamEvent carries one event read from the stream of generation Gen.
type StreamEvent struct {
	Gen   uint64
	Event api.StreamEvent
}

// ResumePosted reports the resume request.
type ResumePosted struct {
	Epoch uint64
	Err   error
}

// StateFetched reports the current state request made after a stream end.
type StateFetched struct {
	Epoch  uint64
	Prompt uint64
	Turn   *api.Turn
	Err    error
}

func (Activate) isEvent()         {}
func (Submit) isEvent()           {}
func (Resolve) isEvent()          {}
func (HistoryLoaded) isEvent()    {}
func (InterruptChecked) isEvent() {}
func (PromptPosted) isEvent()     {}
func (StreamOpened) isEvent()     {}
func (StreamEvent) isEvent()      {}
func (ResumePosted) isEvent()     {}
func (StateFetched) isEvent()     {}
