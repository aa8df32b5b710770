// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/app"
	"github.com/jeranaias/scholar-tui/internal/transcript"
)

// ErrStreamAlreadyOpen is reported when a stream is opened while the
// session still holds one.
var ErrStreamAlreadyOpen = errors.New("a stream is already open for this session")

// Backend is the subset of *api.Client the session uses.
type Backend interface {
	ChatHistory(ctx context.Context, chatID string) ([]api.Turn, error)
	InterruptStatus(ctx context.Context, chatID string) (*api.InterruptStatus, error)
	SendPrompt(ctx context.Context, chatID string, req api.PromptRequest) error
	OpenStream(ctx context.Context, chatID string) (*api.Stream, error)
	CurrentState(ctx context.Context, chatID string) (*api.Turn, error)
	Resume(ctx context.Context, chatID string, payload any) error
}

// Command performs one request off the UI loop and returns the Event that
// reports it. It may return nil.
type Command func(ctx context.Context) Event

// =============================================================================
// SESSION
// =============================================================================

// Session executes Machine effects against a backend and a transcript.
// Dispatch and the accessors must be called from a single goroutine; only
// the returned Commands run elsewhere.
type Session struct {
	backend Backend
	scope   *app.ChatContext
	view    *transcript.Transcript
	logger  *zap.Logger

	machine Machine

	// stream is the owned handle of generation streamGen.
	stream    *api.Stream
	streamGen uint64

	// incoming is the handle delivered by the StreamOpened being dispatched.
	incoming *api.Stream

	root       context.Context
	rootCancel context.CancelFunc
	actCtx     context.Context
	actCancel  context.CancelFunc

	onNotify func(Notify)
	onInput  func(bool)
}

// NewSession creates a session with no active chat. scope supplies the
// selected documents and filter for each prompt; it may be nil. Cancelling
// ctx aborts every request and the open stream.
func NewSession(ctx context.Context, backend Backend, scope *app.ChatContext, logger *zap.Logger) *Session {
	if scope == nil {
		scope = &app.ChatContext{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	root, cancel := context.WithCancel(ctx)
	s := &Session{
		backend:    backend,
		scope:      scope,
		view:       transcript.New(),
		logger:     logger,
		root:       root,
		rootCancel: cancel,
	}
	s.actCtx, s.actCancel = context.WithCancel(root)
	return s
}

// OnNotify registers the handler for user notifications.
func (s *Session) OnNotify(fn func(Notify)) { s.onNotify = fn }

// OnInputChange registers a handler called when input is enabled or disabled.
func (s *Session) OnInputChange(fn func(bool)) { s.onInput = fn }

// Transcript returns the display model.
func (s *Session) Transcript() *transcript.Transcript { return s.view }

// Scope returns the selection and filter applied to prompts.
func (s *Session) Scope() *app.ChatContext { return s.scope }

// Machine returns a copy of the controller state.
func (s *Session) Machine() Machine { return s.machine }

// State returns the controller state.
func (s *Session) State() State { return s.machine.State }

// ChatID returns the active chat id.
func (s *Session) ChatID() string { return s.machine.ChatID }

// InputEnabled reports whether a prompt can be typed.
func (s *Session) InputEnabled() bool { return s.machine.InputEnabled }

// PendingInterrupt returns the interrupt awaiting an answer.
func (s *Session) PendingInterrupt() (api.Interrupt, bool) {
	if s.machine.State != StateAwaitingInterrupt || s.machine.Interrupt == nil {
		return nil, false
	}
	return s.machine.Interrupt, true
}

// Activate switches to chatID.
func (s *Session) Activate(chatID string) []Command {
	return s.Dispatch(Activate{ChatID: chatID})
}

// Submit sends a prompt.
func (s *Session) Submit(text string) []Command {
	return s.Dispatch(Submit{Text: text})
}

// Resolve answers the pending interrupt.
func (s *Session) Resolve(payload any) []Command {
	return s.Dispatch(Resolve{Payload: payload})
}

// Dispatch steps the machine with ev, applies the resulting effects in
// order, and returns the commands for the I/O effects.
func (s *Session) Dispatch(ev Event) []Command {
	if opened, ok := ev.(StreamOpened); ok {
		s.incoming = opened.Stream
	}

	if _, ok := ev.(Activate); ok {
		// Requests of the previous chat are abandoned.
		s.actCancel()
		s.actCtx, s.actCancel = context.WithCancel(s.root)
	}

	var fx []Effect
	s.machine, fx = s.machine.Step(ev)

	var cmds []Command
	for _, e := range fx {
		if cmd := s.apply(e); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if s.incoming != nil {
		// Not adopted: stale generation, stale epoch or a failed state.
		s.logger.Debug("closing unadopted stream", zap.String("chat_id", s.incoming.ChatID()))
		_ = s.incoming.Close()
		s.incoming = nil
	}
	return cmds
}

// Close releases the open stream and cancels in-flight requests.
func (s *Session) Close() {
	s.closeStream()
	s.rootCancel()
}

// =============================================================================
// EFFECTS
// =============================================================================

func (s *Session) apply(e Effect) Command {
	switch e := e.(type) {
	case AppendUser:
		s.view.AppendUser(e.Text)
	case ShowPlaceholder:
		s.view.ShowPlaceholder(e.Text)
	case RemovePlaceholder:
		s.view.RemovePlaceholder()
	case BeginResponse:
		s.view.BeginResponse()
	case AppendToken:
		s.view.AppendToken(e.Text)
	case SetToolStatus:
		s.view.SetToolStatus(e.Text)
	case DiscardResponse:
		s.view.DiscardResponse()
	case FinishResponse:
		s.view.FinishResponse()
	case ShowInterrupt:
		s.view.ShowInterrupt(e.Interrupt)
	case DisableInterruptForm:
		s.view.DisableInterrupt()
	case RenderDocuments:
		s.view.AddDocuments(e.Fragments)
	case SetInputEnabled:
		if s.onInput != nil {
			s.onInput(e.Enabled)
		}
	case Notify:
		if s.onNotify != nil {
			s.onNotify(e)
		}
	case ResetTranscript:
		s.view.Reset()
	case RenderHistory:
		s.view.LoadHistory(e.Turns)
	case ClearSelection:
		s.scope.Selection.Clear()
	case LogWarning:
		s.logger.Warn(e.Message, zap.String("chat_id", s.machine.ChatID), zap.Error(e.Err))

	case AdoptStream:
		s.adopt(e.Gen)
	case CloseStream:
		s.closeStream()

	case LoadHistory:
		return s.loadHistory(e)
	case CheckInterrupt:
		return s.checkInterrupt(e)
	case PostPrompt:
		return s.postPrompt(e)
	case OpenStream:
		return s.openStream(e)
	case ReadStream:
		return s.readStream(e)
	case FetchCurrentState:
		return s.fetchCurrentState(e)
	case PostResume:
		return s.postResume(e)
	}
	return nil
}

func (s *Session) adopt(gen uint64) {
	if s.incoming == nil {
		return
	}
	if s.stream != nil {
		s.logger.Warn("refusing second stream", zap.Uint64("gen", gen))
		return
	}
	s.stream, s.streamGen = s.incoming, gen
	s.incoming = nil
}

func (s *Session) closeStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Debug("stream close failed", zap.Error(err))
	}
	s.stream = nil
	s.streamGen = 0
}

// =============================================================================
// COMMANDS
// =============================================================================

// bind derives a request context that ends with either ctx or act.
func bind(ctx, act context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(act, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) loadHistory(e LoadHistory) Command {
	act := s.actCtx
	return func(ctx context.Context) Event {
		ctx, done := bind(ctx, act)
		defer done()
		turns, err := s.backend.ChatHistory(ctx, e.ChatID)
		return HistoryLoaded{Epoch: e.Epoch, Turns: turns, Err: err}
	}
}

func (s *Session) checkInterrupt(e CheckInterrupt) Command {
	act := s.actCtx
	return func(ctx context.Context) Event {
		ctx, done := bind(ctx, act)
		defer done()
		status, err := s.backend.InterruptStatus(ctx, e.ChatID)
		if err != nil {
			return InterruptChecked{Epoch: e.Epoch, Err: err}
		}
		in, _ := status.Pending()
		return InterruptChecked{Epoch: e.Epoch, Interrupt: in}
	}
}

func (s *Session) postPrompt(e PostPrompt) Command {
	// Scope is read on the loop, before the command runs.
	req := api.PromptRequest{
		Query:             e.Text,
		SelectedDocuments: s.scope.Selection.IDs(),
		Filter:            s.scope.Filter,
	}
	act := s.actCtx
	return func(ctx context.Context) Event {
		ctx, done := bind(ctx, act)
		defer done()
		return PromptPosted{Epoch: e.Epoch, Err: s.backend.SendPrompt(ctx, e.ChatID, req)}
	}
}

func (s *Session) openStream(e OpenStream) Command {
	if s.stream != nil {
		return func(context.Context) Event {
			return StreamOpened{Epoch: e.Epoch, Gen: e.Gen, Err: ErrStreamAlreadyOpen}
		}
	}
	// The stream outlives the command, so it is bound to the activation only.
	act := s.actCtx
	return func(ctx context.Context) Event {
		if err := ctx.Err(); err != nil {
			return StreamOpened{Epoch: e.Epoch, Gen: e.Gen, Err: err}
		}
		stream, err := s.backend.OpenStream(act, e.ChatID)
		return StreamOpened{Epoch: e.Epoch, Gen: e.Gen, Stream: stream, Err: err}
	}
}

func (s *Session) readStream(e ReadStream) Command {
	stream := s.stream
	if stream == nil || s.streamGen != e.Gen {
		return nil
	}
	return func(context.Context) Event {
		ev, err := stream.Next()
		if err != nil {
			return StreamEvent{Gen: e.Gen, Event: api.StreamError{Message: err.Error(), Transport: true}}
		}
		return StreamEvent{Gen: e.Gen, Event: ev}
	}
}

func (s *Session) fetchCurrentState(e FetchCurrentState) Command {
	act := s.actCtx
	return func(ctx context.Context) Event {
		ctx, done := bind(ctx, act)
		defer done()
		turn, err := s.backend.CurrentState(ctx, e.ChatID)
		return StateFetched{Epoch: e.Epoch, Prompt: e.Prompt, Turn: turn, Err: err}
	}
}

func (s *Session) postResume(e PostResume) Command {
	act := s.actCtx
	return func(ctx context.Context) Event {
		ctx, done := bind(ctx, act)
		defer done()
		return ResumePosted{Epoch: e.Epoch, Err: s.backend.Resume(ctx, e.ChatID, e.Payload)}
	}
}

// =============================================================================
// SYNCHRONOUS DRIVER
// =============================================================================

// Run executes cmds one at a time on the calling goroutine, dispatching each
// result and queueing the commands it produces, until nothing is left.
// observe, if set, is called after each result was dispatched.
func (s *Session) Run(ctx context.Context, cmds []Command, observe func(Event)) error {
	queue := append([]Command(nil), cmds...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd := queue[0]
		queue = queue[1:]

		ev := cmd(ctx)
		if ev == nil {
			continue
		}
		queue = append(queue, s.Dispatch(ev)...)
		if observe != nil {
			observe(ev)
		}
	}
	return nil
}
