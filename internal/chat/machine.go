// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/jeranaias/scholar-tui/internal/api"
)

// Fixed transcript texts.
const (
	PlaceholderThinking   = "Thinking"
	PlaceholderProcessing = "Processing..."
	StreamApology         = "Oops, I have an error, please try asking something else"
)

// Notification fallbacks used when the service gives no reason.
const (
	msgPromptFailed  = "Failed to send message"
	msgResumeFailed  = "Failed to submit response"
	msgHistoryFailed = "Failed to load chat history"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller state of the active chat.
type State int

const (
	// StateIdle accepts prompts when input is enabled.
	StateIdle State = iota
	// StateActivating loads history and interrupt status.
	StateActivating
	// StatePromptSent waits for the prompt request.
	StatePromptSent
	// StateStreaming has a stream opening or open.
	StateStreaming
	// StateAwaitingInterrupt shows an interrupt form.
	StateAwaitingInterrupt
	// StateResuming waits for the resume request.
	StateResuming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActivating:
		return "activating"
	case StatePromptSent:
		return "prompt-sent"
	case StateStreaming:
		return "streaming"
	case StateAwaitingInterrupt:
		return "awaiting-interrupt"
	case StateResuming:
		return "resuming"
	default:
		return "unknown"
	}
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the pure chat controller. The zero value has no active chat.
type Machine struct {
	State  State
	ChatID string

	// Epoch increments on every activation.
	Epoch uint64
	// Gen is the generation of the current stream, 0 when none.
	Gen uint64
	// StreamOpen is set once the stream of Gen was adopted.
	StreamOpen bool

	InputEnabled bool

	// Interrupt is the pending interrupt while awaiting input.
	Interrupt api.Interrupt

	lastGen uint64
	// prompts counts submitted prompts. Documents fetched after a stream
	// end belong to the prompt that was current when it ended.
	prompts uint64
}

// Step applies ev and returns the next machine and the effects to apply.
// Events that are illegal in the current state, or that carry a stale
// epoch or generation, return the machine unchanged and no effects.
func (m Machine) Step(ev Event) (Machine, []Effect) {
	next := m
	fx := next.step(ev)
	return next, fx
}

func (m *Machine) step(ev Event) []Effect {
	switch ev := ev.(type) {
	case Activate:
		return m.activate(ev)
	case HistoryLoaded:
		return m.historyLoaded(ev)
	case InterruptChecked:
		return m.interruptChecked(ev)
	case Submit:
		return m.submit(ev)
	case PromptPosted:
		return m.promptPosted(ev)
	case StreamOpened:
		return m.streamOpened(ev)
	case StreamEvent:
		return m.streamEvent(ev)
	case Resolve:
		return m.resolve(ev)
	case ResumePosted:
		return m.resumePosted(ev)
	case StateFetched:
		return m.stateFetched(ev)
	}
	return nil
}

// CanSubmit reports whether a prompt would be accepted now.
func (m Machine) CanSubmit() bool {
	return m.State == StateIdle && m.InputEnabled && m.ChatID != ""
}

// =============================================================================
// ACTIVATION
// =============================================================================

func (m *Machine) activate(ev Activate) []Effect {
	var fx []Effect
	if m.StreamOpen {
		fx = append(fx, CloseStream{Gen: m.Gen})
	}
	m.StreamOpen = false
	m.Gen = 0
	m.Epoch++
	m.ChatID = ev.ChatID
	m.Interrupt = nil

	fx = append(fx, ResetTranscript{}, ClearSelection{})
	fx = m.setInput(fx, false)

	if m.ChatID == "" {
		m.State = StateIdle
		return fx
	}
	m.State = StateActivating
	return append(fx, LoadHistory{ChatID: m.ChatID, Epoch: m.Epoch})
}

func (m *Machine) historyLoaded(ev HistoryLoaded) []Effect {
	if m.State != StateActivating || ev.Epoch != m.Epoch {
		return nil
	}
	var fx []Effect
	if ev.Err != nil {
		fx = append(fx,
			Notify{Level: NotifyError, Text: api.UserMessage(ev.Err, msgHistoryFailed)},
			LogWarning{Message: "chat history load failed", Err: ev.Err},
		)
	} else {
		fx = append(fx, RenderHistory{Turns: ev.Turns})
	}
	// Pending interrupts are reconciled before any prompt is accepted.
	return append(fx, CheckInterrupt{ChatID: m.ChatID, Epoch: m.Epoch})
}

func (m *Machine) interruptChecked(ev InterruptChecked) []Effect {
	if m.State != StateActivating || ev.Epoch != m.Epoch {
		return nil
	}
	var fx []Effect
	if ev.Err != nil {
		fx = append(fx, LogWarning{Message: "interrupt status check failed", Err: ev.Err})
	}
	if ev.Err == nil && ev.Interrupt != nil {
		return m.awaitInterrupt(fx, ev.Interrupt)
	}
	m.State = StateIdle
	return m.setInput(fx, true)
}

// =============================================================================
// PROMPT
// =============================================================================

func (m *Machine) submit(ev Submit) []Effect {
	text := strings.TrimSpace(ev.Text)
	if !m.CanSubmit() || text == "" {
		return nil
	}
	m.prompts++
	fx := m.setInput(nil, false)
	fx = append(fx,
		RemovePlaceholder{},
		AppendUser{Text: text},
		ShowPlaceholder{Text: PlaceholderThinking},
		PostPrompt{ChatID: m.ChatID, Epoch: m.Epoch, Text: text},
	)
	m.State = StatePromptSent
	return fx
}

func (m *Machine) promptPosted(ev PromptPosted) []Effect {
	if m.State != StatePromptSent || ev.Epoch != m.Epoch {
		return nil
	}
	if ev.Err != nil {
		fx := []Effect{
			RemovePlaceholder{},
			Notify{Level: NotifyError, Text: api.UserMessage(ev.Err, msgPromptFailed)},
			LogWarning{Message: "prompt request failed", Err: ev.Err},
		}
		m.State = StateIdle
		return m.setInput(fx, true)
	}
	return []Effect{m.openStream()}
}

// =============================================================================
// STREAM
// =============================================================================

func (m *Machine) openStream() Effect {
	m.lastGen++
	m.Gen = m.lastGen
	m.StreamOpen = false
	m.State = StateStreaming
	return OpenStream{ChatID: m.ChatID, Epoch: m.Epoch, Gen: m.Gen}
}

func (m *Machine) streamOpened(ev StreamOpened) []Effect {
	if m.State != StateStreaming || m.StreamOpen || ev.Epoch != m.Epoch || ev.Gen != m.Gen {
		return nil
	}
	if ev.Err != nil {
		return m.streamFailed("stream open failed", ev.Err)
	}
	m.StreamOpen = true
	return []Effect{
		AdoptStream{Gen: m.Gen},
		BeginResponse{},
		ReadStream{Gen: m.Gen},
	}
}

func (m *Machine) streamEvent(ev StreamEvent) []Effect {
	if m.State != StateStreaming || !m.StreamOpen || ev.Gen != m.Gen {
		return nil
	}

	switch e := ev.Event.(type) {
	case api.TokenChunk:
		return []Effect{
			RemovePlaceholder{},
			AppendToken{Text: e.Text},
			ReadStream{Gen: m.Gen},
		}

	case api.ToolNotice:
		return []Effect{
			RemovePlaceholder{},
			SetToolStatus{Text: e.Content},
			ReadStream{Gen: m.Gen},
		}

	case api.InterruptRequest:
		fx := []Effect{m.closeStream(), DiscardResponse{}, RemovePlaceholder{}}
		return m.awaitInterrupt(fx, e.Interrupt)

	case api.StreamEnd:
		fx := []Effect{
			m.closeStream(),
			RemovePlaceholder{},
			FinishResponse{},
			FetchCurrentState{ChatID: m.ChatID, Epoch: m.Epoch, Prompt: m.prompts},
		}
		m.State = StateIdle
		return m.setInput(fx, true)

	case api.StreamError:
		return m.streamFailed("stream failed", streamError(e))

	case api.Unrecognized:
		return []Effect{
			LogWarning{Message: "ignored unrecognized stream event: " + describeUnrecognized(e)},
			ReadStream{Gen: m.Gen},
		}
	}
	return []Effect{ReadStream{Gen: m.Gen}}
}

func (m *Machine) closeStream() Effect {
	gen := m.Gen
	m.StreamOpen = false
	m.Gen = 0
	return CloseStream{Gen: gen}
}

func (m *Machine) streamFailed(msg string, err error) []Effect {
	var fx []Effect
	if m.StreamOpen {
		fx = append(fx, m.closeStream())
	}
	m.StreamOpen = false
	m.Gen = 0
	fx = append(fx,
		RemovePlaceholder{},
		SetToolStatus{Text: StreamApology},
		FinishResponse{},
		LogWarning{Message: msg, Err: err},
	)
	m.State = StateIdle
	return m.setInput(fx, true)
}

func (m *Machine) stateFetched(ev StateFetched) []Effect {
	if ev.Epoch != m.Epoch {
		return nil
	}
	if ev.Err != nil {
		return []Effect{LogWarning{Message: "current state fetch failed", Err: ev.Err}}
	}
	// A newer prompt was sent while the fetch was in flight.
	if ev.Prompt != m.prompts {
		return nil
	}
	if ev.Turn == nil || len(ev.Turn.Documents) == 0 {
		return nil
	}
	return []Effect{RenderDocuments{Fragments: ev.Turn.Documents}}
}

// =============================================================================
// INTERRUPTS
// =============================================================================

func (m *Machine) awaitInterrupt(fx []Effect, in api.Interrupt) []Effect {
	m.Interrupt = in
	m.State = StateAwaitingInterrupt
	fx = m.setInput(fx, false)
	fx = append(fx, ShowInterrupt{Interrupt: in})
	if u, ok := in.(api.UnknownInterrupt); ok {
		fx = append(fx, LogWarning{Message: "unknown interrupt type " + strconv.Quote(u.Type) + ", offering dismiss only"})
	}
	return fx
}

func (m *Machine) resolve(ev Resolve) []Effect {
	if m.State != StateAwaitingInterrupt {
		return nil
	}
	payload := ev.Payload
	if payload == nil {
		payload = api.Dismissal{}
	}
	m.Interrupt = nil
	m.State = StateResuming
	return []Effect{
		DisableInterruptForm{},
		ShowPlaceholder{Text: PlaceholderProcessing},
		PostResume{ChatID: m.ChatID, Epoch: m.Epoch, Payload: payload},
	}
}

func (m *Machine) resumePosted(ev ResumePosted) []Effect {
	if m.State != StateResuming || ev.Epoch != m.Epoch {
		return nil
	}
	if ev.Err != nil {
		fx := []Effect{
			RemovePlaceholder{},
			Notify{Level: NotifyError, Text: api.UserMessage(ev.Err, msgResumeFailed)},
			LogWarning{Message: "resume request failed", Err: ev.Err},
		}
		m.State = StateIdle
		return m.setInput(fx, true)
	}
	return []Effect{m.openStream()}
}

// =============================================================================
// HELPERS
// =============================================================================

// setInput appends SetInputEnabled only when the value changes.
func (m *Machine) setInput(fx []Effect, enabled bool) []Effect {
	if m.InputEnabled == enabled {
		return fx
	}
	m.InputEnabled = enabled
	return append(fx, SetInputEnabled{Enabled: enabled})
}

type streamErr struct {
	msg       string
	transport bool
}

func (e streamErr) Error() string {
	if e.transport {
		return "transport: " + e.msg
	}
	return e.msg
}

func streamError(e api.StreamError) error {
	return streamErr{msg: e.Message, transport: e.Transport}
}

func describeUnrecognized(u api.Unrecognized) string {
	if u.Type != "" {
		return u.Event + "/" + strconv.Quote(u.Type)
	}
	return u.Event
}
