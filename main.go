// scholar - a terminal client for a document-aware chat assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/scholar-tui/internal/app"
	"github.com/jeranaias/scholar-tui/internal/cli"
	"github.com/jeranaias/scholar-tui/internal/ui/chat"
	"github.com/jeranaias/scholar-tui/internal/ui/documents"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		cli.PrintUsage(os.Stderr)
		os.Exit(cli.ExitCode(err))
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout, args)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args); err != nil {
		if args.JSON {
			_ = cli.NewJSONErrorResponse(cmd.String(), err).Write(os.Stdout)
		} else {
			cli.DisplayError(os.Stderr, err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// run builds the application context and routes to the command handler.
func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	if cmd == cli.CmdConfig {
		return cli.HandleConfig(cli.NewEnv(nil, args))
	}

	// The TUI owns the terminal, so only line commands mirror logs to stderr.
	a, err := cli.NewApp(args, cmd != cli.CmdTUI)
	if err != nil {
		return err
	}
	defer a.Close()

	env := cli.NewEnv(a, args)
	switch cmd {
	case cli.CmdTUI:
		if !cli.IsTTY() || !cli.IsStdoutTTY() {
			return cli.NewUsageError("the terminal UI needs an interactive terminal; use 'scholar chat' or a subcommand")
		}
		return runTUI(ctx, a)
	case cli.CmdChat:
		return cli.HandleChat(ctx, env)
	case cli.CmdChats:
		return cli.HandleChats(ctx, env)
	case cli.CmdDocs:
		return cli.HandleDocs(ctx, env)
	case cli.CmdExport:
		return cli.HandleExport(ctx, env)
	default:
		return cli.NewUsageError(fmt.Sprintf("unhandled command %v", cmd))
	}
}

// runTUI starts the full-screen interface.
func runTUI(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(ctx, a, styles.NewTheme(a.Config.UI.Theme))

	var opts []tea.ProgramOption
	if a.Config.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	// A termination signal ends the program like ctrl+c does.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	m.chat.Session().Close()
	if err != nil {
		return fmt.Errorf("error running scholar: %w", err)
	}
	return nil
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// Screen is the screen currently shown.
type Screen int

const (
	ScreenChat Screen = iota
	ScreenDocuments
)

// Model is the root Bubble Tea model. It hosts the chat and document screens
// and forwards messages to them.
type Model struct {
	screen Screen
	quit   key.Binding

	chat chat.Model
	docs documents.Model
}

// NewModel creates the root model. Cancelling ctx aborts all requests.
func NewModel(ctx context.Context, a *app.App, theme *styles.Theme) *Model {
	docs := documents.New(ctx, a, theme)
	return &Model{
		screen: ScreenChat,
		quit:   key.NewBinding(key.WithKeys("ctrl+c")),
		chat:   chat.New(ctx, a, theme),
		docs:   docs,
	}
}

// Init starts the chat screen. The document screen loads when opened.
func (m *Model) Init() tea.Cmd {
	return m.chat.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			m.chat.Session().Close()
			return m, tea.Quit
		}
		// Keys only reach the visible screen.
		if m.screen == ScreenDocuments {
			return m, m.updateDocs(msg)
		}
		return m, m.updateChat(msg)

	case chat.OpenDocumentsMsg:
		m.screen = ScreenDocuments
		return m, m.docs.Init()

	case documents.BackMsg:
		m.screen = ScreenChat
		return m, nil
	}

	// Everything else is broadcast; each screen ignores what it did not start.
	return m, tea.Batch(m.updateChat(msg), m.updateDocs(msg))
}

func (m *Model) updateChat(msg tea.Msg) tea.Cmd {
	next, cmd := m.chat.Update(msg)
	m.chat = next.(chat.Model)
	return cmd
}

func (m *Model) updateDocs(msg tea.Msg) tea.Cmd {
	next, cmd := m.docs.Update(msg)
	m.docs = next.(documents.Model)
	return cmd
}

// View renders the visible screen.
func (m *Model) View() string {
	if m.screen == ScreenDocuments {
		return m.docs.View()
	}
	return m.chat.View()
}
