// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat with the assistant.
//
// The REPL drives the same chat.Session as the terminal UI. Each turn runs
// the session's commands on the calling goroutine and prints the transcript
// as it grows.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/chat"
	"github.com/jeranaias/scholar-tui/internal/export"
	"github.com/jeranaias/scholar-tui/internal/registry"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

const chatPrompt = "scholar> "

// errQuit ends the REPL without an error.
var errQuit = errors.New("quit")

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads lines for the REPL.
type LineReader interface {
	// Prompt shows prompt and returns the entered line. It returns
	// liner.ErrPromptAborted on Ctrl+C and io.EOF on Ctrl+D.
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close()
}

// LinerInput is a LineReader with line editing and a persistent history.
type LinerInput struct {
	line        *liner.State
	historyFile string
}

// NewLinerInput opens the line editor. History is kept in dir/chat_history;
// an empty dir disables persistence.
func NewLinerInput(dir string) *LinerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	in := &LinerInput{line: line}
	if dir != "" {
		in.historyFile = filepath.Join(dir, "chat_history")
		if f, err := os.Open(in.historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return in
}

// Prompt reads one line.
func (in *LinerInput) Prompt(prompt string) (string, error) {
	return in.line.Prompt(prompt)
}

// AppendHistory adds a non-empty line to the history.
func (in *LinerInput) AppendHistory(line string) {
	if strings.TrimSpace(line) != "" {
		in.line.AppendHistory(line)
	}
}

// Close saves the history (owner read/write only) and restores the terminal.
func (in *LinerInput) Close() {
	if in.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				_, _ = in.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	env     *Env
	in      LineReader
	session *chat.Session
	out     *printer
}

// HandleChat runs the line-mode chat. The chat is --chat, a new chat with
// --new, else the active chat, else a new one.
func HandleChat(ctx context.Context, env *Env) error {
	a := env.App
	id, err := pickChat(ctx, env)
	if err != nil {
		return err
	}

	in, err := env.Input()
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	session := chat.NewSession(ctx, a.Client, a.Chat, a.Logger.Named("chat"))
	defer session.Close()

	r := &repl{env: env, in: in, session: session, out: newPrinter(env.Out)}
	session.OnNotify(r.notify)

	if !env.Args.Quiet {
		fmt.Fprintln(env.Err, DimStyle.Render("Type /help for commands, /quit to leave."))
	}
	if err := r.activate(ctx, id, true); err != nil {
		return err
	}
	return r.loop(ctx)
}

func pickChat(ctx context.Context, env *Env) (string, error) {
	reg := env.App.Registry
	switch {
	case env.Args.ChatID != "":
		id := resolveChat(reg, env.Args.ChatID)
		return id, activateChat(reg, id)
	case env.Args.NewChat:
		return newChat(ctx, env)
	}
	if id, ok := reg.Active(); ok {
		return id, nil
	}
	return newChat(ctx, env)
}

func (r *repl) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		var err error
		if block, ok := r.session.Transcript().ActiveInterrupt(); ok {
			err = r.answer(ctx, block.Interrupt)
		} else {
			err = r.prompt(ctx)
		}

		switch {
		case err == nil:
		case errors.Is(err, errQuit), errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			fmt.Fprintln(r.env.Out)
			return nil
		default:
			fmt.Fprintf(r.env.Err, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

func (r *repl) prompt(ctx context.Context) error {
	input, err := r.in.Prompt(chatPrompt)
	if err != nil {
		return err
	}
	r.in.AppendHistory(input)

	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return nil
	case strings.HasPrefix(input, "/"):
		return r.command(ctx, input)
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return errQuit
	}

	if !r.session.InputEnabled() {
		r.notify(chat.Notify{Level: chat.NotifyError, Text: "The assistant is busy. Try again in a moment."})
		return nil
	}
	cmds := r.session.Submit(input)
	// The typed line is already on screen.
	r.out.skip(r.session.Transcript().Blocks(), transcript.KindUser)
	return r.run(ctx, cmds)
}

// run executes one turn. Ctrl+C cancels the turn and reloads the chat.
func (r *repl) run(ctx context.Context, cmds []chat.Command) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := r.session.Run(turnCtx, cmds, r.observe)
	r.out.endLine()
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintln(r.env.Err, WarningStyle.Render("[Cancelled]"))
	return r.activate(ctx, r.session.ChatID(), false)
}

// activate switches the session to id. With show unset the loaded history
// is not printed again.
func (r *repl) activate(ctx context.Context, id string, show bool) error {
	cmds := r.session.Activate(id)
	if !show {
		err := r.session.Run(ctx, cmds, nil)
		r.out.skip(r.session.Transcript().Blocks())
		return err
	}
	if !r.env.Args.Quiet {
		fmt.Fprintln(r.env.Out, TitleStyle.Render(chatLabel(r.env.App.Registry, id))+" "+DimStyle.Render(id))
	}
	return r.run(ctx, cmds)
}

func (r *repl) observe(chat.Event) {
	r.out.flush(r.session.Transcript().Blocks())
}

func (r *repl) notify(n chat.Notify) {
	switch n.Level {
	case chat.NotifyError:
		fmt.Fprintln(r.env.Err, ErrorStyle.Render(n.Text))
	case chat.NotifySuccess:
		fmt.Fprintln(r.env.Err, SuccessStyle.Render(n.Text))
	default:
		if !r.env.Args.Quiet {
			fmt.Fprintln(r.env.Err, DimStyle.Render(n.Text))
		}
	}
}

// =============================================================================
// INTERRUPTS
// =============================================================================

// answer asks the user to resolve the pending interrupt and resumes the run.
func (r *repl) answer(ctx context.Context, in api.Interrupt) error {
	var payload any
	var err error

	switch req := in.(type) {
	case api.RecipientInfoRequest:
		payload, err = r.askRecipient(req)
	case api.ConfirmationRequest:
		payload, err = r.askConfirmation(req)
	default:
		if msg := in.Prompt(); msg != "" {
			fmt.Fprintln(r.env.Out, WarningStyle.Render(msg))
		}
		_, err = r.in.Prompt("Press Enter to dismiss ")
		payload = chat.DismissPayload()
	}
	if err != nil {
		return err
	}
	return r.run(ctx, r.session.Resolve(payload))
}

// askRecipient reads name and email until they validate. "/cancel" or
// Ctrl+C at either prompt cancels the request.
func (r *repl) askRecipient(req api.RecipientInfoRequest) (any, error) {
	fmt.Fprintln(r.env.Out, WarningStyle.Render(req.Message))
	nameLabel := labelOr(req.NameLabel, "Recipient name")
	emailLabel := labelOr(req.EmailLabel, "Email address")

	for {
		name, err := r.in.Prompt(nameLabel + ": ")
		if errors.Is(err, liner.ErrPromptAborted) || strings.TrimSpace(name) == "/cancel" {
			return chat.CancelRecipient(), nil
		}
		if err != nil {
			return nil, err
		}
		email, err := r.in.Prompt(emailLabel + ": ")
		if errors.Is(err, liner.ErrPromptAborted) || strings.TrimSpace(email) == "/cancel" {
			return chat.CancelRecipient(), nil
		}
		if err != nil {
			return nil, err
		}

		payload, err := chat.RecipientPayload(name, email)
		if err == nil {
			return payload, nil
		}
		fmt.Fprintln(r.env.Err, ErrorStyle.Render(validate.Message(err)))
	}
}

func (r *repl) askConfirmation(req api.ConfirmationRequest) (any, error) {
	fmt.Fprintln(r.env.Out, WarningStyle.Render(req.Message))
	p := req.Preview
	to := p.ToEmail
	if p.ToName != "" {
		to = fmt.Sprintf("%s <%s>", p.ToName, p.ToEmail)
	}
	fmt.Fprintf(r.env.Out, "%s %s\n", RenderLabel("To"), to)
	fmt.Fprintf(r.env.Out, "%s %s\n", RenderLabel("Subject"), p.Subject)
	if p.BodyPreview != "" {
		fmt.Fprintln(r.env.Out, DimStyle.Render(p.BodyPreview))
	}

	answer, err := r.in.Prompt("Confirm? [y/N]: ")
	if errors.Is(err, liner.ErrPromptAborted) {
		return chat.ConfirmPayload(false), nil
	}
	if err != nil {
		return nil, err
	}
	return chat.ConfirmPayload(isYes(answer)), nil
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new                 Start a new chat
  /chats               List chats
  /use ID|N            Switch chat
  /select FILE_ID      Toggle a document in the prompt scope
  /clear               Clear the selected documents
  /filter [show|clear|options]
                       Show, clear or set the prompt filter
                       (--file --folder --author --created-from ... --category ID=VALUE)
  /export [md|html|json]
                       Export the chat to the current directory
  /quit                Leave`

func (r *repl) command(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	name, rest := strings.ToLower(fields[0]), fields[1:]
	a := r.env.App

	switch name {
	case "/help", "/?":
		fmt.Fprintln(r.env.Out, replHelp)
	case "/quit", "/exit", "/q":
		return errQuit
	case "/new":
		id, err := newChat(ctx, r.env)
		if err != nil {
			return err
		}
		return r.activate(ctx, id, true)
	case "/chats":
		return chatsList(r.env)
	case "/use":
		if len(rest) == 0 {
			return NewUsageError("usage: /use ID|N")
		}
		id := resolveChat(a.Registry, rest[0])
		if err := activateChat(a.Registry, id); err != nil {
			return err
		}
		return r.activate(ctx, id, true)
	case "/select":
		if len(rest) == 0 {
			return NewUsageError("usage: /select FILE_ID")
		}
		for _, id := range rest {
			state := "Deselected"
			if a.Chat.Selection.Toggle(id) {
				state = "Selected"
			}
			fmt.Fprintf(r.env.Out, "%s %s\n", state, id)
		}
		fmt.Fprintf(r.env.Out, "%d document(s) in scope\n", a.Chat.Selection.Len())
	case "/clear":
		a.Chat.Selection.Clear()
		fmt.Fprintln(r.env.Out, "Selection cleared")
	case "/filter":
		return r.filter(rest)
	case "/export":
		format := "md"
		if len(rest) > 0 {
			format = rest[0]
		}
		return r.export(format)
	default:
		return NewUsageError(fmt.Sprintf("unknown command %s (try /help)", fields[0]))
	}
	return nil
}

func (r *repl) filter(args []string) error {
	scope := r.env.App.Chat
	if len(args) == 0 || args[0] == "show" {
		fmt.Fprintln(r.env.Out, describeFilter(scope.Filter))
		return nil
	}
	if args[0] == "clear" {
		scope.Filter = api.Filter{}
		fmt.Fprintln(r.env.Out, "Filter cleared")
		return nil
	}

	form, err := filterForm(NewArgParser(args))
	if err != nil {
		return err
	}
	filter, err := form.Build(nil)
	if err != nil {
		return NewUsageError(validate.Message(err))
	}
	scope.Filter = filter
	fmt.Fprintln(r.env.Out, describeFilter(filter))
	return nil
}

func (r *repl) export(format string) error {
	id := r.session.ChatID()
	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return NewUsageError(err.Error())
	}
	conv := export.FromTranscript(id, chatLabel(r.env.App.Registry, id), r.session.Transcript().Blocks())
	path, err := export.ToFile(conv, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.env.Out, SuccessStyle.Render("Exported to "+path))
	return nil
}

// chatLabel names a chat by its list position.
func chatLabel(reg *registry.Registry, id string) string {
	for i, c := range reg.List() {
		if c == id {
			return fmt.Sprintf("Chat #%d", i+1)
		}
	}
	return "Chat"
}

func describeFilter(f api.Filter) string {
	if f.IsZero() {
		return "No filter"
	}
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+"="+v)
		}
	}
	add("file", f.File)
	add("folder", f.Folder)
	add("author", f.Author)
	add("created-from", f.CreatedFrom)
	add("created-to", f.CreatedTo)
	add("updated-from", f.UpdatedFrom)
	add("updated-to", f.UpdatedTo)
	for _, c := range f.CategoryIDs {
		add(c.ID, strings.Join(c.Categories, "|"))
	}
	return "Filter: " + strings.Join(parts, " ")
}

// =============================================================================
// TRANSCRIPT PRINTER
// =============================================================================

// printer writes transcript blocks incrementally. Assistant text is printed
// as it streams; other blocks are printed once.
type printer struct {
	w io.Writer

	// printed maps block ids to the printed length of their text.
	printed map[string]int
	tool    map[string]string
	// open is the assistant block whose line is still being written.
	open string
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, printed: make(map[string]int), tool: make(map[string]string)}
}

// skip marks blocks as printed. With kinds set only those kinds are marked.
func (p *printer) skip(blocks []transcript.Block, kinds ...transcript.Kind) {
	for _, b := range blocks {
		if len(kinds) > 0 && !slices.Contains(kinds, b.Kind) {
			continue
		}
		p.printed[b.ID] = len(b.Text)
		if b.Kind == transcript.KindTool {
			p.tool[b.ID] = b.Text
		}
	}
}

func (p *printer) flush(blocks []transcript.Block) {
	openSeen := false
	for _, b := range blocks {
		switch b.Kind {
		case transcript.KindUser:
			if _, ok := p.printed[b.ID]; !ok {
				p.line(UserStyle.Render("you> ") + b.Text)
				p.printed[b.ID] = len(b.Text)
			}
		case transcript.KindAssistant:
			p.assistant(b)
		case transcript.KindTool:
			if b.Text != "" && p.tool[b.ID] != b.Text {
				p.line(DimStyle.Render("... " + b.Text))
			}
			p.tool[b.ID] = b.Text
		case transcript.KindDocuments:
			if _, ok := p.printed[b.ID]; !ok {
				p.documents(b.Cards)
				p.printed[b.ID] = 0
			}
		}
		// Checked after the block so a line opened by this flush counts.
		if b.ID == p.open {
			openSeen = true
		}
	}
	// A discarded response leaves its line unterminated.
	if p.open != "" && !openSeen {
		p.endLine()
	}
}

func (p *printer) assistant(b transcript.Block) {
	if n := p.printed[b.ID]; len(b.Text) > n {
		if p.open != b.ID {
			p.endLine()
			fmt.Fprint(p.w, AssistantStyle.Render("assistant> "))
			p.open = b.ID
		}
		fmt.Fprint(p.w, b.Text[n:])
		p.printed[b.ID] = len(b.Text)
	}
	if b.Final && p.open == b.ID {
		p.endLine()
	}
}

func (p *printer) documents(cards []transcript.Card) {
	p.line(DimStyle.Render("Sources:"))
	for _, c := range cards {
		name := c.FileName
		if c.Folder != "" {
			name = c.Folder + "/" + name
		}
		p.line(fmt.Sprintf("  [%s] %s (%d fragment(s))", c.FileID, name, len(c.Lines)))
	}
}

// line prints s on a line of its own.
func (p *printer) line(s string) {
	p.endLine()
	fmt.Fprintln(p.w, s)
}

// endLine terminates an assistant line in progress.
func (p *printer) endLine() {
	if p.open != "" {
		fmt.Fprintln(p.w)
		p.open = ""
	}
}
