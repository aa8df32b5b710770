// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scholar-tui/internal/api"
)

// =============================================================================
// HELPERS
// =============================================================================

func find[T Effect](fx []Effect) (T, bool) {
	for _, e := range fx {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func count[T Effect](fx []Effect) int {
	n := 0
	for _, e := range fx {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

// idle returns a machine with chat c1 active and input enabled.
func idle(t *testing.T) Machine {
	t.Helper()
	m, _ := Machine{}.Step(Activate{ChatID: "c1"})
	m, _ = m.Step(HistoryLoaded{Epoch: m.Epoch})
	m, _ = m.Step(InterruptChecked{Epoch: m.Epoch})
	require.Equal(t, StateIdle, m.State)
	require.True(t, m.InputEnabled)
	return m
}

// streaming returns a machine with an adopted stream for c1.
func streaming(t *testing.T) Machine {
	t.Helper()
	m := idle(t)
	m, _ = m.Step(Submit{Text: "hi"})
	m, _ = m.Step(PromptPosted{Epoch: m.Epoch})
	m, _ = m.Step(StreamOpened{Epoch: m.Epoch, Gen: m.Gen})
	require.Equal(t, StateStreaming, m.State)
	require.True(t, m.StreamOpen)
	return m
}

var confirmation = api.ConfirmationRequest{Message: "Send the email?"}

// =============================================================================
// ACTIVATION
// =============================================================================

func TestMachine_Activate(t *testing.T) {
	m, fx := Machine{}.Step(Activate{ChatID: "c1"})

	assert.Equal(t, StateActivating, m.State)
	assert.Equal(t, uint64(1), m.Epoch)
	_, reset := find[ResetTranscript](fx)
	assert.True(t, reset)
	load, ok := find[LoadHistory](fx)
	require.True(t, ok)
	assert.Equal(t, LoadHistory{ChatID: "c1", Epoch: 1}, load)

	m, fx = m.Step(HistoryLoaded{Epoch: 1, Turns: []api.Turn{{}}})
	_, rendered := find[RenderHistory](fx)
	assert.True(t, rendered)
	check, ok := find[CheckInterrupt](fx)
	require.True(t, ok)
	assert.Equal(t, "c1", check.ChatID)

	m, fx = m.Step(InterruptChecked{Epoch: 1})
	assert.Equal(t, StateIdle, m.State)
	assert.Equal(t, []Effect{SetInputEnabled{Enabled: true}}, fx)
}

func TestMachine_ActivateEmptyChat(t *testing.T) {
	m, fx := Machine{}.Step(Activate{})
	assert.Equal(t, StateIdle, m.State)
	assert.False(t, m.CanSubmit())
	_, loads := find[LoadHistory](fx)
	assert.False(t, loads)
}

func TestMachine_HistoryFailureStillChecksInterrupt(t *testing.T) {
	m, _ := Machine{}.Step(Activate{ChatID: "c1"})
	m, fx := m.Step(HistoryLoaded{Epoch: m.Epoch, Err: errors.New("down")})

	note, ok := find[Notify](fx)
	require.True(t, ok)
	assert.Equal(t, NotifyError, note.Level)
	_, checks := find[CheckInterrupt](fx)
	assert.True(t, checks)
	assert.Equal(t, StateActivating, m.State)
}

func TestMachine_ReloadRecovery(t *testing.T) {
	m, _ := Machine{}.Step(Activate{ChatID: "c1"})
	m, _ = m.Step(HistoryLoaded{Epoch: m.Epoch})
	m, fx := m.Step(InterruptChecked{Epoch: m.Epoch, Interrupt: confirmation})

	assert.Equal(t, StateAwaitingInterrupt, m.State)
	assert.False(t, m.InputEnabled)
	assert.Equal(t, 1, count[ShowInterrupt](fx))
	assert.Zero(t, count[SetInputEnabled](fx), "input was never enabled")

	_, fx = m.Step(Submit{Text: "hello"})
	assert.Empty(t, fx)
}

func TestMachine_StaleEpochDropped(t *testing.T) {
	m, _ := Machine{}.Step(Activate{ChatID: "c1"})
	old := m.Epoch
	m, _ = m.Step(Activate{ChatID: "c2"})

	next, fx := m.Step(HistoryLoaded{Epoch: old, Turns: []api.Turn{{}}})
	assert.Empty(t, fx)
	assert.Equal(t, m, next)
}

func TestMachine_ChatSwitchClosesStream(t *testing.T) {
	m := streaming(t)
	gen := m.Gen

	m, fx := m.Step(Activate{ChatID: "c2"})
	require.NotEmpty(t, fx)
	assert.Equal(t, CloseStream{Gen: gen}, fx[0])
	assert.False(t, m.StreamOpen)
	assert.Equal(t, "c2", m.ChatID)

	// The old stream's events no longer apply.
	next, fx := m.Step(StreamEvent{Gen: gen, Event: api.TokenChunk{Text: "late"}})
	assert.Empty(t, fx)
	assert.Equal(t, m, next)
}

// =============================================================================
// PROMPT AND STREAM
// =============================================================================

func TestMachine_SubmitGuards(t *testing.T) {
	m := idle(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, fx := m.Step(Submit{Text: text})
		assert.Empty(t, fx, "text %q", text)
	}

	m, fx := m.Step(Submit{Text: "  hi  "})
	require.Equal(t, StatePromptSent, m.State)
	assert.Equal(t, []Effect{
		SetInputEnabled{Enabled: false},
		RemovePlaceholder{},
		AppendUser{Text: "hi"},
		ShowPlaceholder{Text: PlaceholderThinking},
		PostPrompt{ChatID: "c1", Epoch: m.Epoch, Text: "hi"},
	}, fx)

	_, fx = m.Step(Submit{Text: "again"})
	assert.Empty(t, fx, "second submit while in flight")
}

func TestMachine_StreamHappyPath(t *testing.T) {
	m := idle(t)
	var all []Effect
	apply := func(ev Event) {
		var fx []Effect
		m, fx = m.Step(ev)
		all = append(all, fx...)
	}

	apply(Submit{Text: "hi"})
	apply(PromptPosted{Epoch: m.Epoch})
	open, ok := find[OpenStream](all)
	require.True(t, ok)
	assert.Equal(t, uint64(1), open.Gen)

	apply(StreamOpened{Epoch: m.Epoch, Gen: open.Gen})
	apply(StreamEvent{Gen: open.Gen, Event: api.ToolNotice{Content: "Searching"}})
	apply(StreamEvent{Gen: open.Gen, Event: api.TokenChunk{Text: "Hel"}})
	apply(StreamEvent{Gen: open.Gen, Event: api.TokenChunk{Text: "lo"}})
	apply(StreamEvent{Gen: open.Gen, Event: api.StreamEnd{}})

	assert.Equal(t, StateIdle, m.State)
	assert.True(t, m.InputEnabled)
	assert.False(t, m.StreamOpen)

	var text string
	for _, e := range all {
		if tok, ok := e.(AppendToken); ok {
			text += tok.Text
		}
	}
	assert.Equal(t, "Hello", text)
	assert.Equal(t, 1, count[AdoptStream](all))
	assert.Equal(t, 1, count[CloseStream](all))
	assert.Equal(t, 1, count[FetchCurrentState](all))
	assert.Equal(t, 4, count[ReadStream](all), "one read per applied non-terminal event")

	var enables int
	for _, e := range all {
		if in, ok := e.(SetInputEnabled); ok && in.Enabled {
			enables++
		}
	}
	assert.Equal(t, 1, enables)
}

func TestMachine_PromptFailure(t *testing.T) {
	m := idle(t)
	m, _ = m.Step(Submit{Text: "hi"})
	m, fx := m.Step(PromptPosted{Epoch: m.Epoch, Err: &api.Error{Status: 500, Reason: "boom"}})

	assert.Equal(t, StateIdle, m.State)
	assert.True(t, m.InputEnabled)
	note, ok := find[Notify](fx)
	require.True(t, ok)
	assert.Equal(t, "boom", note.Text)
	_, opens := find[OpenStream](fx)
	assert.False(t, opens)
}

func TestMachine_StreamOpenFailure(t *testing.T) {
	m := idle(t)
	m, _ = m.Step(Submit{Text: "hi"})
	m, _ = m.Step(PromptPosted{Epoch: m.Epoch})
	m, fx := m.Step(StreamOpened{Epoch: m.Epoch, Gen: m.Gen, Err: errors.New("refused")})

	assert.Equal(t, StateIdle, m.State)
	assert.True(t, m.InputEnabled)
	assert.Contains(t, fx, Effect(SetToolStatus{Text: StreamApology}))
	assert.Zero(t, count[CloseStream](fx), "nothing was adopted")
}

func TestMachine_StreamErrorShowsApology(t *testing.T) {
	m := streaming(t)
	gen := m.Gen

	m, fx := m.Step(StreamEvent{Gen: gen, Event: api.StreamError{Message: "malformed stream payload: x"}})

	assert.Equal(t, StateIdle, m.State)
	assert.True(t, m.InputEnabled)
	assert.Equal(t, CloseStream{Gen: gen}, fx[0])
	assert.Contains(t, fx, Effect(RemovePlaceholder{}))
	assert.Contains(t, fx, Effect(SetToolStatus{Text: StreamApology}))
	_, logged := find[LogWarning](fx)
	assert.True(t, logged)
}

func TestMachine_StaleGenerationDropped(t *testing.T) {
	m := streaming(t)

	for _, ev := range []Event{
		StreamEvent{Gen: m.Gen + 1, Event: api.TokenChunk{Text: "x"}},
		StreamEvent{Gen: 0, Event: api.StreamEnd{}},
		StreamOpened{Epoch: m.Epoch, Gen: m.Gen},
	} {
		next, fx := m.Step(ev)
		assert.Empty(t, fx)
		assert.Equal(t, m, next)
	}
}

func TestMachine_UnrecognizedEventKeepsReading(t *testing.T) {
	m := streaming(t)
	next, fx := m.Step(StreamEvent{Gen: m.Gen, Event: api.Unrecognized{Event: "message", Type: "AIMessage"}})

	assert.Equal(t, m, next)
	require.Len(t, fx, 2)
	assert.IsType(t, LogWarning{}, fx[0])
	assert.Equal(t, ReadStream{Gen: m.Gen}, fx[1])
}

func TestMachine_StateFetched(t *testing.T) {
	m := idle(t)
	docs := []api.Fragment{{PageContent: "a"}}

	_, fx := m.Step(StateFetched{Epoch: m.Epoch, Turn: &api.Turn{Documents: docs}})
	assert.Equal(t, []Effect{RenderDocuments{Fragments: docs}}, fx)

	_, fx = m.Step(StateFetched{Epoch: m.Epoch, Turn: &api.Turn{}})
	assert.Empty(t, fx)

	_, fx = m.Step(StateFetched{Epoch: m.Epoch, Err: errors.New("x")})
	require.Len(t, fx, 1)
	assert.IsType(t, LogWarning{}, fx[0])

	_, fx = m.Step(StateFetched{Epoch: m.Epoch + 1, Turn: &api.Turn{Documents: docs}})
	assert.Empty(t, fx)
}

func TestMachine_StateFetchedAfterNewerPromptIsDropped(t *testing.T) {
	m := streaming(t)
	m, fx := m.Step(StreamEvent{Gen: m.Gen, Event: api.StreamEnd{}})
	fetch, ok := find[FetchCurrentState](fx)
	require.True(t, ok)
	require.True(t, m.CanSubmit())

	m, _ = m.Step(Submit{Text: "next question"})
	docs := []api.Fragment{{PageContent: "old"}}
	_, fx = m.Step(StateFetched{Epoch: fetch.Epoch, Prompt: fetch.Prompt, Turn: &api.Turn{Documents: docs}})
	assert.Empty(t, fx)
}

func TestMachine_StateFetchedForCurrentPrompt(t *testing.T) {
	m := streaming(t)
	m, fx := m.Step(StreamEvent{Gen: m.Gen, Event: api.StreamEnd{}})
	fetch, ok := find[FetchCurrentState](fx)
	require.True(t, ok)
	assert.Equal(t, uint64(1), fetch.Prompt)

	docs := []api.Fragment{{PageContent: "a"}}
	_, fx = m.Step(StateFetched{Epoch: fetch.Epoch, Prompt: fetch.Prompt, Turn: &api.Turn{Documents: docs}})
	assert.Equal(t, []Effect{RenderDocuments{Fragments: docs}}, fx)
}

// =============================================================================
// INTERRUPTS
// =============================================================================

func TestMachine_InterruptClosesStreamAndResumes(t *testing.T) {
	m := streaming(t)
	gen := m.Gen

	m, fx := m.Step(StreamEvent{Gen: gen, Event: api.InterruptRequest{Interrupt: confirmation}})
	assert.Equal(t, StateAwaitingInterrupt, m.State)
	assert.Equal(t, CloseStream{Gen: gen}, fx[0])
	assert.Equal(t, 1, count[DiscardResponse](fx))
	assert.Equal(t, 1, count[ShowInterrupt](fx))
	assert.False(t, m.InputEnabled)
	assert.Equal(t, confirmation, m.Interrupt)

	m, fx = m.Step(Resolve{Payload: ConfirmPayload(true)})
	assert.Equal(t, StateResuming, m.State)
	assert.Equal(t, []Effect{
		DisableInterruptForm{},
		ShowPlaceholder{Text: PlaceholderProcessing},
		PostResume{ChatID: "c1", Epoch: m.Epoch, Payload: api.Confirmation{Confirmed: true}},
	}, fx)
	_, fx = m.Step(Resolve{Payload: ConfirmPayload(false)})
	assert.Empty(t, fx, "second answer while the first is in flight")

	m, fx = m.Step(ResumePosted{Epoch: m.Epoch})
	open, ok := find[OpenStream](fx)
	require.True(t, ok)
	assert.Equal(t, 1, len(fx))
	assert.Greater(t, open.Gen, gen)

	m, fx = m.Step(StreamOpened{Epoch: m.Epoch, Gen: open.Gen})
	assert.Equal(t, 1, count[AdoptStream](fx))
	assert.True(t, m.StreamOpen)
}

func TestMachine_UnknownInterruptIsDismissOnly(t *testing.T) {
	m := streaming(t)
	unknown := api.UnknownInterrupt{Type: "calendar_request", Message: "Pick a day"}

	m, fx := m.Step(StreamEvent{Gen: m.Gen, Event: api.InterruptRequest{Interrupt: unknown}})
	assert.Equal(t, StateAwaitingInterrupt, m.State)
	assert.Contains(t, fx, Effect(ShowInterrupt{Interrupt: unknown}))
	warn, ok := find[LogWarning](fx)
	require.True(t, ok)
	assert.Contains(t, warn.Message, "calendar_request")

	m, fx = m.Step(Resolve{})
	resume, ok := find[PostResume](fx)
	require.True(t, ok)
	assert.Equal(t, api.Dismissal{}, resume.Payload)
	assert.Equal(t, StateResuming, m.State)
}

func TestMachine_ResumeFailure(t *testing.T) {
	m := streaming(t)
	m, _ = m.Step(StreamEvent{Gen: m.Gen, Event: api.InterruptRequest{Interrupt: confirmation}})
	m, _ = m.Step(Resolve{Payload: ConfirmPayload(true)})

	m, fx := m.Step(ResumePosted{Epoch: m.Epoch, Err: errors.New("timeout")})
	assert.Equal(t, StateIdle, m.State)
	assert.True(t, m.InputEnabled)
	assert.Contains(t, fx, Effect(RemovePlaceholder{}))
	note, ok := find[Notify](fx)
	require.True(t, ok)
	assert.Equal(t, msgResumeFailed, note.Text)
}

func TestMachine_ResolveIgnoredOutsideInterrupt(t *testing.T) {
	m := idle(t)
	next, fx := m.Step(Resolve{Payload: ConfirmPayload(true)})
	assert.Empty(t, fx)
	assert.Equal(t, m, next)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-interrupt", StateAwaitingInterrupt.String())
	assert.Equal(t, "unknown", State(99).String())
}
