// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/api/apitest"
	"github.com/jeranaias/scholar-tui/internal/app"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

func newTestSession(t *testing.T) (*Session, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.BaseURL(), api.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	s := NewSession(context.Background(), client, &app.ChatContext{}, zap.NewNop())
	t.Cleanup(s.Close)
	return s, srv
}

func run(t *testing.T, s *Session, cmds []Command) {
	t.Helper()
	require.NoError(t, s.Run(context.Background(), cmds, nil))
}

func kinds(blocks []transcript.Block) []transcript.Kind {
	out := make([]transcript.Kind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func confirmationValue() map[string]any {
	return map[string]any{
		"type":    api.InterruptConfirmation,
		"message": "Send the email?",
		"preview": map[string]any{"to_name": "Ann", "to_email": "ann@example.com", "subject": "Hi"},
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestSession_StreamsResponseAndDocuments(t *testing.T) {
	s, srv := newTestSession(t)
	frags := []api.Fragment{
		{PageContent: "one", Metadata: api.FragmentMeta{FileID: "A", OriginalFileName: "a.pdf"}},
		{PageContent: "two", Metadata: api.FragmentMeta{FileID: "A", OriginalFileName: "a.pdf"}},
	}
	srv.QueueStream("c1", apitest.Tool("Searching"), apitest.Token("Hel"), apitest.Token("lo"), apitest.End())
	srv.SetCurrentState("c1", &api.Turn{Documents: frags})

	run(t, s, s.Activate("c1"))
	require.True(t, s.InputEnabled())

	s.Scope().Selection.Toggle("A")
	s.Scope().Filter = api.Filter{Author: "Ann"}
	run(t, s, s.Submit("hi"))

	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.InputEnabled())
	assert.Nil(t, s.stream)

	blocks := s.Transcript().Blocks()
	require.Equal(t, []transcript.Kind{transcript.KindUser, transcript.KindAssistant, transcript.KindDocuments}, kinds(blocks))
	assert.Equal(t, "hi", blocks[0].Text)
	assert.Equal(t, "Hello", blocks[1].Text)
	assert.True(t, blocks[1].Final)
	require.Len(t, blocks[2].Cards, 1)
	assert.Equal(t, []string{"one", "two"}, blocks[2].Cards[0].Lines)

	prompts := srv.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, "hi", prompts[0].Request.Query)
	assert.Equal(t, []string{"A"}, prompts[0].Request.SelectedDocuments)
	assert.Equal(t, "Ann", prompts[0].Request.Filter.Author)
	assert.Equal(t, 1, srv.StreamOpens("c1"))
}

func TestSession_InterruptThenConfirm(t *testing.T) {
	s, srv := newTestSession(t)
	srv.QueueStream("c1", apitest.Token("draft"), apitest.Interrupt(confirmationValue()), apitest.Token("never"))
	srv.QueueStream("c1", apitest.Token("Sent"), apitest.End())

	run(t, s, s.Activate("c1"))
	run(t, s, s.Submit("email Ann"))

	require.Equal(t, StateAwaitingInterrupt, s.State())
	assert.False(t, s.InputEnabled())
	in, ok := s.PendingInterrupt()
	require.True(t, ok)
	assert.Equal(t, "Send the email?", in.Prompt())
	assert.Nil(t, s.stream, "stream closed on interrupt")

	blocks := s.Transcript().Blocks()
	assert.Equal(t, []transcript.Kind{transcript.KindUser, transcript.KindInterrupt}, kinds(blocks))

	run(t, s, s.Resolve(ConfirmPayload(true)))

	resumes := srv.Resumes()
	require.Len(t, resumes, 1)
	assert.JSONEq(t, `{"confirmed":true}`, string(resumes[0].Payload))
	assert.Equal(t, 2, srv.StreamOpens("c1"))

	blocks = s.Transcript().Blocks()
	require.Equal(t, []transcript.Kind{transcript.KindUser, transcript.KindInterrupt, transcript.KindAssistant}, kinds(blocks))
	assert.True(t, blocks[1].Disabled)
	assert.Equal(t, "Sent", blocks[2].Text)
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.InputEnabled())
}

func TestSession_ReloadRecovery(t *testing.T) {
	s, srv := newTestSession(t)
	srv.SetInterrupt("c1", map[string]any{"type": api.InterruptRecipientInfo, "message": "Who should receive it?"})

	var inputChanges []bool
	s.OnInputChange(func(enabled bool) { inputChanges = append(inputChanges, enabled) })
	run(t, s, s.Activate("c1"))

	assert.Equal(t, StateAwaitingInterrupt, s.State())
	assert.False(t, s.InputEnabled())
	assert.Empty(t, inputChanges)

	block, ok := s.Transcript().ActiveInterrupt()
	require.True(t, ok)
	assert.IsType(t, api.RecipientInfoRequest{}, block.Interrupt)
}

func TestSession_SingleStreamOwnership(t *testing.T) {
	s, srv := newTestSession(t)
	srv.QueueStream("c1", apitest.Token("a"), apitest.Block())
	ctx := context.Background()

	run(t, s, s.Activate("c1"))

	cmds := s.Submit("hi")
	require.Len(t, cmds, 1)
	cmds = s.Dispatch(cmds[0](ctx))
	require.Len(t, cmds, 1)
	cmds = s.Dispatch(cmds[0](ctx))
	require.Len(t, cmds, 1, "first read")
	require.NotNil(t, s.stream)
	pendingRead := cmds[0]

	ev := s.openStream(OpenStream{ChatID: "c1", Epoch: s.Machine().Epoch, Gen: 99})(ctx)
	opened, ok := ev.(StreamOpened)
	require.True(t, ok)
	assert.ErrorIs(t, opened.Err, ErrStreamAlreadyOpen)
	assert.Equal(t, 1, srv.StreamOpens("c1"), "rejected before any request")

	// Switching chats closes the stream; the outstanding read is dropped.
	s.Activate("c2")
	assert.Nil(t, s.stream)

	ev = pendingRead(ctx)
	before := s.Machine()
	assert.Empty(t, s.Dispatch(ev))
	assert.Equal(t, before, s.Machine())
	assert.Equal(t, 0, s.Transcript().Len())
}

func TestSession_PromptFailureNotifies(t *testing.T) {
	s, srv := newTestSession(t)
	srv.FailRoute("POST /chat/c1", 500, `{"error":"model offline"}`)

	var notes []Notify
	s.OnNotify(func(n Notify) { notes = append(notes, n) })

	run(t, s, s.Activate("c1"))
	run(t, s, s.Submit("hi"))

	require.Len(t, notes, 1)
	assert.Equal(t, Notify{Level: NotifyError, Text: "model offline"}, notes[0])
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.InputEnabled())
	assert.False(t, s.Transcript().HasPlaceholder())
	assert.Equal(t, 0, srv.StreamOpens("c1"))
}

func TestSession_StreamFailureApologizes(t *testing.T) {
	s, srv := newTestSession(t)
	srv.QueueStream("c1", apitest.Token("par"), apitest.Fail("{'message': 'boom'}"))

	run(t, s, s.Activate("c1"))
	run(t, s, s.Submit("hi"))

	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.InputEnabled())

	var tool string
	for _, b := range s.Transcript().Blocks() {
		if b.Kind == transcript.KindTool {
			tool = b.Text
		}
	}
	assert.Equal(t, StreamApology, tool)
}

func TestSession_ActivateClearsScope(t *testing.T) {
	s, _ := newTestSession(t)
	s.Scope().Selection.Toggle("A")

	run(t, s, s.Activate("c1"))
	assert.Equal(t, 0, s.Scope().Selection.Len())
}

// =============================================================================
// PAYLOADS
// =============================================================================

func TestRecipientPayload(t *testing.T) {
	p, err := RecipientPayload(" Ann ", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, api.RecipientInfo{Name: "Ann", Email: "ann@example.com"}, p)

	_, err = RecipientPayload("Ann", "not-an-email")
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.Contains(t, validate.Message(err), "Email address")

	_, err = RecipientPayload("", "")
	assert.ErrorIs(t, err, validate.ErrInvalid)
}
