// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/app"
	core "github.com/jeranaias/scholar-tui/internal/chat"
	"github.com/jeranaias/scholar-tui/internal/documents"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/ui/components"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
)

// Texts shown in toasts.
const (
	msgNewChatFailed    = "Failed to create a new chat"
	msgDeleteChatFailed = "Failed to delete the chat"
	msgChatDeleted      = "Chat deleted"
	msgConfirmDelete    = "Are you sure?"
	msgNoChat           = "Press ctrl+n to start a new chat"
)

// =============================================================================
// FOCUS
// =============================================================================

type focusArea int

const (
	focusInput focusArea = iota
	focusTranscript
	focusSidebar
)

const (
	sidebarWidth = 24
	inputHeight  = 3
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	app     *app.App
	ctx     context.Context
	session *core.Session
	docs    *documents.Controller
	logger  *zap.Logger

	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int

	focus focusArea

	// Chat list
	chats      []string
	chatCursor int
	watch      <-chan struct{}

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  components.Spinner
	toasts   *components.ToastManager
	confirm  components.Confirm
	ticking  bool

	// Prompt scope filter
	filter     components.Form
	filterOpen bool
	categories []api.Category

	// Pending interrupt answer state
	iform *interruptForm

	// Transcript navigation
	cardCursor int
	cardLines  []int

	// Markdown rendering of finished answers
	markdown bool
	md       *glamour.TermRenderer
	mdWidth  int
	mdCache  map[string]string

	exportDir     string
	pendingDelete string
}

// New creates the chat screen. Cancelling ctx aborts all requests.
func New(ctx context.Context, a *app.App, theme *styles.Theme) Model {
	logger := a.Logger.Named("ui")
	toasts := components.NewToastManager(a.Config.ToastDuration())

	session := core.NewSession(ctx, a.Client, a.Chat, a.Logger.Named("chat"))
	session.OnNotify(func(n core.Notify) {
		switch n.Level {
		case core.NotifyError:
			toasts.AddError(n.Text)
		case core.NotifySuccess:
			toasts.AddSuccess(n.Text)
		default:
			toasts.AddStatus(n.Text)
		}
	})

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))

	sp := components.NewSpinner()

	return Model{
		app:       a,
		ctx:       ctx,
		session:   session,
		docs:      documents.NewController(a.Client, a.Meta, a.Config.UI.PageSize, logger),
		logger:    logger,
		theme:     theme,
		keys:      DefaultKeyMap(),
		chats:     a.Registry.List(),
		viewport:  viewport.New(80, 20),
		input:     ta,
		spinner:   sp,
		toasts:    toasts,
		markdown:  a.Config.UI.Markdown,
		mdCache:   make(map[string]string),
		exportDir: ".",
	}
}

// Session returns the controller session observed by the screen.
func (m Model) Session() *core.Session { return m.session }

// SetExportDir sets where exports and downloads are written.
func (m *Model) SetExportDir(dir string) { m.exportDir = dir }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init opens the active chat, or creates one when there is none.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.loadMetadataCmd()}
	if id, ok := m.app.Registry.Active(); ok {
		cmds = append(cmds, func() tea.Msg { return activateMsg{id: id} })
	} else {
		cmds = append(cmds, m.newChatCmd())
	}
	if ch, err := m.app.WatchRegistry(m.ctx); err == nil {
		cmds = append(cmds, func() tea.Msg { return watchMsg{ch: ch} })
	} else if !errors.Is(err, app.ErrNoWatch) {
		m.logger.Warn("registry watch failed", zap.Error(err))
	}
	return tea.Batch(cmds...)
}

// activateMsg switches the screen to a chat.
type activateMsg struct{ id string }

// watchMsg hands the registry watch channel to the model.
type watchMsg struct{ ch <-chan struct{} }

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refresh(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		cmd := m.run(m.session.Dispatch(msg.event))
		return m.afterDispatch(cmd)

	case activateMsg:
		return m.activate(msg.id)

	case newChatMsg:
		if msg.err != nil {
			m.logger.Warn("new chat failed", zap.Error(msg.err))
			m.toasts.AddError(api.UserMessage(msg.err, msgNewChatFailed))
			return m.withToastTick(nil)
		}
		list, err := m.app.Registry.AddOrTouch(msg.id)
		if err != nil {
			m.logger.Warn("chat list update failed", zap.Error(err))
		}
		m.chats = list
		return m.activate(msg.id)

	case chatDeletedMsg:
		return m.handleChatDeleted(msg)

	case components.ConfirmResultMsg:
		if msg.Confirmed && m.pendingDelete != "" {
			id := m.pendingDelete
			m.pendingDelete = ""
			return m, m.deleteChatCmd(id)
		}
		m.pendingDelete = ""
		return m, nil

	case watchMsg:
		m.watch = msg.ch
		return m, waitForRegistry(m.watch)

	case registryChangedMsg:
		m.chats = m.app.Registry.List()
		m.clampChatCursor()
		return m, waitForRegistry(m.watch)

	case metadataMsg:
		if msg.err != nil {
			m.logger.Debug("categories unavailable", zap.Error(msg.err))
			return m, nil
		}
		m.categories = msg.categories
		return m, nil

	case components.FormSubmitMsg:
		if msg.ID == components.FilterFormID && m.filterOpen {
			if filter, ok := components.BuildFilter(&m.filter, m.categories); ok {
				m.app.Chat.Filter = filter
				m.filterOpen = false
				m.layout()
			}
		}
		return m, nil

	case components.FormCancelMsg:
		if msg.ID == components.FilterFormID {
			m.filterOpen = false
			m.layout()
		}
		return m, nil

	case components.FormResetMsg:
		if msg.ID == components.FilterFormID && m.filterOpen {
			m.app.Chat.Filter = api.Filter{}
			m.filterOpen = false
			m.layout()
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.logger.Warn("export failed", zap.Error(msg.err))
			m.toasts.AddError("Export failed: " + msg.err.Error())
		} else {
			m.toasts.AddSuccess("Exported to " + msg.path)
		}
		return m.withToastTick(nil)

	case downloadedMsg:
		if msg.err != nil {
			m.logger.Warn("download failed", zap.Error(msg.err))
			m.toasts.AddError(api.UserMessage(msg.err, "Download failed"))
		} else {
			m.toasts.AddSuccess("Saved " + msg.path)
		}
		return m.withToastTick(nil)

	case components.ToastTickMsg:
		if !msg.For(m.toasts) {
			return m, nil
		}
		m.toasts.TickToasts()
		m.layout()
		if !m.toasts.HasToasts() {
			m.ticking = false
			return m, nil
		}
		return m, m.toasts.TickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.spinner.IsActive() {
			m.refresh(false)
		}
		return m, cmd

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		if m.focus == focusInput && m.session.InputEnabled() {
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// View renders the chat screen.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.session.Close()
		return m, tea.Quit
	}

	if m.confirm.IsOpen() {
		var cmd tea.Cmd
		m.confirm, cmd = m.confirm.Update(msg)
		return m, cmd
	}

	if m.filterOpen {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChatCmd()
	case key.Matches(msg, m.keys.Filter):
		m.filter = components.NewFilterForm(m.app.Chat.Filter, m.categories)
		m.filterOpen = true
		return m, nil
	case key.Matches(msg, m.keys.Export):
		return m.export()
	case key.Matches(msg, m.keys.Documents):
		return m, func() tea.Msg { return OpenDocumentsMsg{} }
	case key.Matches(msg, m.keys.NextPane):
		// A pending interrupt form uses tab for its own fields.
		if m.iform == nil || m.focus != focusInput {
			m.setFocus((m.focus + 1) % 3)
			return m, nil
		}
	case key.Matches(msg, m.keys.PrevPane):
		m.setFocus((m.focus + 2) % 3)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusTranscript:
		return m.handleTranscriptKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.iform != nil {
		payload, cmd := m.iform.update(msg)
		if payload == nil {
			m.refresh(false)
			return m, cmd
		}
		return m.afterDispatch(m.run(m.session.Resolve(payload)))
	}

	if !m.session.InputEnabled() {
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		return m.afterDispatch(m.run(m.session.Submit(text)))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	refs := cardRefs(m.session.Transcript().Blocks())
	sel := &m.app.Chat.Selection

	switch {
	case key.Matches(msg, m.keys.Up):
		if len(refs) == 0 {
			m.viewport.LineUp(1)
			return m, nil
		}
		if m.cardCursor > 0 {
			m.cardCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if len(refs) == 0 {
			m.viewport.LineDown(1)
			return m, nil
		}
		if m.cardCursor < len(refs)-1 {
			m.cardCursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.cardCursor < len(refs) {
			sel.Toggle(refs[m.cardCursor].fileID)
		}
	case key.Matches(msg, m.keys.ClearFiles):
		sel.Clear()
	case msg.String() == "d":
		if m.cardCursor < len(refs) {
			return m, m.downloadCmd(refs[m.cardCursor].fileID)
		}
		return m, nil
	default:
		return m, nil
	}

	m.layout()
	m.refresh(false)
	m.revealCard()
	return m, nil
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.chatCursor > 0 {
			m.chatCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.chatCursor < len(m.chats)-1 {
			m.chatCursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.chatCursor < len(m.chats) {
			return m.activate(m.chats[m.chatCursor])
		}
	case key.Matches(msg, m.keys.DeleteChat):
		if m.chatCursor < len(m.chats) {
			m.pendingDelete = m.chats[m.chatCursor]
			m.confirm.Open("delete-chat", msgConfirmDelete)
		}
	}
	return m, nil
}

// =============================================================================
// CHAT LIFECYCLE
// =============================================================================

// activate switches to id. An empty id clears the screen.
func (m Model) activate(id string) (tea.Model, tea.Cmd) {
	if id != "" {
		if err := m.app.Registry.SetActive(id); err != nil {
			m.logger.Warn("failed to persist active chat", zap.Error(err))
		}
		for i, c := range m.chats {
			if c == id {
				m.chatCursor = i
			}
		}
	}
	m.iform = nil
	m.cardCursor = 0
	m.mdCache = make(map[string]string)
	m.input.Reset()
	return m.afterDispatch(m.run(m.session.Activate(id)))
}

func (m Model) handleChatDeleted(msg chatDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("chat delete failed", zap.String("chat_id", msg.id), zap.Error(msg.err))
		m.toasts.AddError(api.UserMessage(msg.err, msgDeleteChatFailed))
		return m.withToastTick(nil)
	}

	list, err := m.app.Registry.Remove(msg.id)
	if err != nil {
		m.logger.Warn("chat list update failed", zap.Error(err))
	}
	m.chats = list
	m.clampChatCursor()
	m.toasts.AddSuccess(msgChatDeleted)

	if msg.id != m.session.ChatID() {
		return m.withToastTick(nil)
	}
	next, _ := m.app.Registry.Active()
	model, cmd := m.activate(next)
	return model.(Model).withToastTick(cmd)
}

func (m Model) export() (tea.Model, tea.Cmd) {
	blocks := m.session.Transcript().Blocks()
	if len(blocks) == 0 || m.session.ChatID() == "" {
		m.toasts.AddStatus("Nothing to export")
		return m.withToastTick(nil)
	}
	return m, exportCmd(m.session.ChatID(), m.chatTitle(), blocks, m.exportDir)
}

// =============================================================================
// STATE SYNC
// =============================================================================

// afterDispatch brings the widgets in line with the session after its
// state changed.
func (m Model) afterDispatch(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{cmd}

	if _, pending := m.session.PendingInterrupt(); pending {
		if b, ok := m.session.Transcript().ActiveInterrupt(); ok && (m.iform == nil || m.iform.blockID != b.ID) {
			m.iform = newInterruptForm(b)
			m.setFocus(focusInput)
		}
	} else {
		m.iform = nil
	}

	if m.session.InputEnabled() && m.focus == focusInput {
		cmds = append(cmds, m.input.Focus())
	} else {
		m.input.Blur()
	}

	if placeholder, ok := m.placeholder(); ok {
		m.spinner.SetMessage(placeholder)
		cmds = append(cmds, m.spinner.Start())
	} else {
		m.spinner.Stop()
	}

	m.layout()
	m.refresh(true)
	return m.withToastTick(tea.Batch(cmds...))
}

// withToastTick starts the toast expiry loop when toasts are shown.
func (m Model) withToastTick(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.ticking || !m.toasts.HasToasts() {
		return m, cmd
	}
	m.ticking = true
	m.layout()
	return m, tea.Batch(cmd, m.toasts.TickCmd())
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput && m.session.InputEnabled() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f == focusSidebar {
		for i, c := range m.chats {
			if c == m.session.ChatID() {
				m.chatCursor = i
			}
		}
	}
	m.refresh(false)
}

func (m *Model) clampChatCursor() {
	if m.chatCursor >= len(m.chats) {
		m.chatCursor = len(m.chats) - 1
	}
	if m.chatCursor < 0 {
		m.chatCursor = 0
	}
}

func (m Model) placeholder() (string, bool) {
	for _, b := range m.session.Transcript().Blocks() {
		if b.Kind == transcript.KindPlaceholder {
			return b.Text, true
		}
	}
	return "", false
}

// chatTitle names the active chat by its position in the list.
func (m Model) chatTitle() string {
	return chatLabel(m.chats, m.session.ChatID())
}
