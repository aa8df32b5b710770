// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SSE event names.
const (
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Payload types carried by message events.
const (
	PayloadToken     = "AIMessageChunk"
	PayloadTool      = "tool"
	PayloadInterrupt = "interrupt"
)

// StreamEvent is one decoded event of a chat stream. The set of
// implementations is closed.
type StreamEvent interface {
	isStreamEvent()
}

// TokenChunk is a piece of assistant output.
type TokenChunk struct {
	Text string
}

// ToolNotice reports tool activity.
type ToolNotice struct {
	Content string
}

// InterruptRequest pauses the chat until the interrupt is resolved.
type InterruptRequest struct {
	Interrupt Interrupt
}

// StreamEnd terminates the stream normally.
type StreamEnd struct{}

// StreamError terminates the stream with a failure. Transport is set when
// the connection failed rather than the service reporting an error.
type StreamError struct {
	Message   string
	Transport bool
}

// Unrecognized is an event this client does not understand. It is reported
// so callers can log it; it never changes chat state.
type Unrecognized struct {
	Event string
	Type  string
	Raw   string
}

func (TokenChunk) isStreamEvent()       {}
func (ToolNotice) isStreamEvent()       {}
func (InterruptRequest) isStreamEvent() {}
func (StreamEnd) isStreamEvent()        {}
func (StreamError) isStreamEvent()      {}
func (Unrecognized) isStreamEvent()     {}

// DecodeEvent converts one SSE event into a StreamEvent. A message payload
// that is not valid JSON becomes a StreamError.
func DecodeEvent(name string, data []byte) StreamEvent {
	if name == "" {
		name = EventMessage
	}

	switch name {
	case EventEnd:
		return StreamEnd{}
	case EventError:
		return StreamError{Message: errorEventMessage(data)}
	case EventMessage:
		return decodeMessage(data)
	default:
		return Unrecognized{Event: name, Raw: string(data)}
	}
}

// errorEventMessage reads {"message": "..."} from an error event. Payloads
// that are not JSON are kept verbatim.
func errorEventMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(bytes.TrimSpace(data))
}

type messageWire struct {
	Type       string          `json:"type"`
	Content    json.RawMessage `json:"content"`
	Interrupts []struct {
		Value json.RawMessage `json:"value"`
	} `json:"interrupts"`
}

func decodeMessage(data []byte) StreamEvent {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return StreamError{Message: "malformed stream payload: empty data"}
	}

	// Tool updates arrive as a serialized message list.
	if trimmed[0] == '[' {
		var list []struct {
			Type string `json:"type"`
			Data struct {
				Content json.RawMessage `json:"content"`
			} `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return StreamError{Message: fmt.Sprintf("malformed stream payload: %v", err)}
		}
		if len(list) == 0 {
			return Unrecognized{Event: EventMessage, Raw: string(trimmed)}
		}
		if list[0].Type != PayloadTool {
			return Unrecognized{Event: EventMessage, Type: list[0].Type, Raw: string(trimmed)}
		}
		return ToolNotice{Content: contentText(list[0].Data.Content)}
	}

	var w messageWire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return StreamError{Message: fmt.Sprintf("malformed stream payload: %v", err)}
	}

	switch w.Type {
	case PayloadToken:
		return TokenChunk{Text: contentText(w.Content)}
	case PayloadTool:
		return ToolNotice{Content: contentText(w.Content)}
	case PayloadInterrupt:
		if len(w.Interrupts) == 0 {
			return StreamError{Message: "malformed stream payload: interrupt without value"}
		}
		return InterruptRequest{Interrupt: DecodeInterrupt(w.Interrupts[0].Value)}
	default:
		return Unrecognized{Event: EventMessage, Type: w.Type, Raw: string(trimmed)}
	}
}
