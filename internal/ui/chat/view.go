// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	core "github.com/jeranaias/scholar-tui/internal/chat"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/ui/components"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
	"github.com/jeranaias/scholar-tui/internal/util"
)

// cardLinesShown is how many rows of fragment text a card shows.
const cardLinesShown = 2

// cardRef locates a document card in the transcript.
type cardRef struct {
	blockID string
	fileID  string
}

// cardRefs lists the cards of all documents blocks in display order.
func cardRefs(blocks []transcript.Block) []cardRef {
	var refs []cardRef
	for _, b := range blocks {
		if b.Kind != transcript.KindDocuments {
			continue
		}
		for _, c := range b.Cards {
			refs = append(refs, cardRef{blockID: b.ID, fileID: c.FileID})
		}
	}
	return refs
}

// chatLabel names a chat by its position in the list, counting from one.
func chatLabel(chats []string, id string) string {
	if id == "" {
		return "No chat"
	}
	for i, c := range chats {
		if c == id {
			return fmt.Sprintf("Chat #%d", i+1)
		}
	}
	return "Chat"
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) showSidebar() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

func (m *Model) mainWidth() int {
	w := m.width
	if m.showSidebar() {
		w -= sidebarWidth + 2
	}
	return max(10, w)
}

func (m *Model) toastHeight() int {
	if !m.toasts.HasToasts() {
		return 0
	}
	return lipgloss.Height(components.RenderToastStack(m.toasts.GetToasts(), m.width, 0))
}

// layout sizes the viewport and input for the current window.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	w := m.mainWidth()
	m.input.SetWidth(w)

	h := m.height - 2 - m.toastHeight() - (inputHeight + 1)
	if m.app.Chat.Selection.ShowClear() {
		h--
	}
	m.viewport.Width = w
	m.viewport.Height = max(3, h)
}

// refresh re-renders the transcript into the viewport. With follow set the
// viewport scrolls to the newest line.
func (m *Model) refresh(follow bool) {
	content, cardLines := m.renderTranscript(m.viewport.Width)
	m.cardLines = cardLines
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(content)
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

// revealCard scrolls the viewport so the focused card is visible.
func (m *Model) revealCard() {
	if m.cardCursor >= len(m.cardLines) {
		return
	}
	line := m.cardLines[m.cardCursor]
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line+cardLinesShown+3 > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line + cardLinesShown + 3 - m.viewport.Height)
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every block at width cells. It also returns the
// first line of each document card.
func (m *Model) renderTranscript(width int) (string, []int) {
	if m.session.ChatID() == "" {
		return m.theme.Placeholder.Render(msgNoChat), nil
	}

	var sb strings.Builder
	var cardLines []int
	line := 0
	write := func(s string) {
		sb.WriteString(s)
		sb.WriteString("\n")
		line += lipgloss.Height(s)
	}

	sel := &m.app.Chat.Selection
	card := 0
	for _, b := range m.session.Transcript().Blocks() {
		switch b.Kind {
		case transcript.KindUser:
			write(m.theme.UserLabel.Render("You"))
			write(m.theme.UserBlock.Width(width - 1).Render(b.Text))
			write("")

		case transcript.KindAssistant:
			if b.Text == "" {
				continue
			}
			write(m.theme.AssistantLabel.Render("Assistant"))
			write(m.renderAnswer(b, width))
			write("")

		case transcript.KindTool:
			if b.Text != "" {
				write(m.theme.ToolLine.Render(util.TruncateWidth(b.Text, width)))
			}

		case transcript.KindPlaceholder:
			if m.spinner.IsActive() {
				write(m.spinner.View())
			} else {
				write(m.theme.Placeholder.Render(b.Text))
			}

		case transcript.KindDocuments:
			write(m.theme.AssistantLabel.Render("Documents"))
			for _, c := range b.Cards {
				cardLines = append(cardLines, line)
				focused := m.focus == focusTranscript && card == m.cardCursor
				write(m.renderCard(c, sel.Has(c.FileID), focused, width))
				card++
			}
			write("")

		case transcript.KindInterrupt:
			var form *interruptForm
			if m.iform != nil && m.iform.blockID == b.ID && !b.Disabled {
				form = m.iform
			}
			write(renderInterrupt(m.theme, b, form, width))
			write("")
		}
	}
	return strings.TrimRight(sb.String(), "\n"), cardLines
}

// renderAnswer renders an assistant block. Finished answers are rendered as
// markdown when enabled.
func (m *Model) renderAnswer(b transcript.Block, width int) string {
	plain := m.theme.AssistantBlock.Width(width - 1).Render(b.Text)
	if !b.Final || !m.markdown {
		return plain
	}

	key := fmt.Sprintf("%s:%d", b.ID, width)
	if out, ok := m.mdCache[key]; ok {
		return out
	}
	if m.md == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(max(20, width-4)),
		)
		if err != nil {
			return plain
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(b.Text)
	if err != nil {
		return plain
	}
	out = strings.Trim(out, "\n")
	m.mdCache[key] = out
	return out
}

// renderCard renders one source file: checkbox, name and folder, then the
// fragment text clamped to a few rows.
func (m *Model) renderCard(c transcript.Card, selected, focused bool, width int) string {
	inner := max(10, width-4)

	name := c.FileName
	if name == "" {
		name = c.FileID
	}
	title := styles.Checkbox(selected) + " " + m.theme.CardTitle.Render(util.TruncateWidth(name, inner-4))
	rows := []string{title}
	if c.Folder != "" {
		rows = append(rows, m.theme.CardFolder.Render(util.TruncateWidth(c.Folder, inner)))
	}
	for _, l := range clampText(strings.Join(c.Lines, " "), inner, cardLinesShown) {
		rows = append(rows, m.theme.CardLine.Render(l))
	}

	style := m.theme.Card
	if focused {
		style = m.theme.CardFocused
	}
	return style.Width(width - 2).Render(strings.Join(rows, "\n"))
}

// clampText wraps text to width cells and keeps at most n rows. A cut-off
// last row ends with an ellipsis.
func clampText(text string, width, n int) []string {
	text = util.SingleLine(text)
	if text == "" {
		return nil
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	rows := strings.Split(wrapped, "\n")
	for i := range rows {
		rows[i] = strings.TrimRight(rows[i], " ")
	}
	if len(rows) <= n {
		return rows
	}
	rows = rows[:n]
	rows[n-1] = runewidth.Truncate(rows[n-1], width-1, "") + "…"
	return rows
}

// =============================================================================
// SCREEN
// =============================================================================

func (m Model) render() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.confirm.IsOpen() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View(m.theme))
	}
	if m.filterOpen {
		dialog := m.theme.Dialog.Render(m.filter.View(m.theme, min(70, m.width-6)))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	main := m.renderMain()
	if m.showSidebar() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(lipgloss.Height(main)), main)
	}

	parts := []string{m.renderHeader(), main}
	if m.toasts.HasToasts() {
		parts = append(parts, components.RenderToastStack(m.toasts.GetToasts(), m.width, 0))
	}
	parts = append(parts, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("scholar")
	info := chatLabel(m.chats, m.session.ChatID())
	if state := m.session.State(); state != core.StateIdle {
		info += "  " + state.String()
	}
	if !m.app.Chat.Filter.IsZero() {
		info += "  [filtered]"
	}
	line := title + "  " + info
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(line, m.width-2))
}

func (m Model) renderSidebar(height int) string {
	var rows []string
	rows = append(rows, m.theme.HeaderTitle.Render("Chats"))
	active := m.session.ChatID()
	for i, id := range m.chats {
		label := chatLabel(m.chats, id)
		style := m.theme.SidebarItem
		if id == active {
			style = m.theme.SidebarActive
			label = "> " + label
		} else {
			label = "  " + label
		}
		if m.focus == focusSidebar && i == m.chatCursor {
			style = style.Inherit(m.theme.SidebarCursor)
		}
		rows = append(rows, style.Render(util.PadWidth(util.TruncateWidth(label, sidebarWidth-2), sidebarWidth-2)))
	}
	if len(m.chats) == 0 {
		rows = append(rows, m.theme.Placeholder.Render("none"))
	}

	style := m.theme.Sidebar
	if m.focus == focusSidebar {
		style = style.BorderForeground(styles.Purple)
	}
	return style.Width(sidebarWidth).Height(max(1, height-2)).Render(strings.Join(rows, "\n"))
}

func (m Model) renderMain() string {
	parts := []string{m.viewport.View()}

	if sel := &m.app.Chat.Selection; sel.ShowClear() {
		banner := fmt.Sprintf("%d document(s) selected  ", sel.Len())
		parts = append(parts, m.theme.ClearControl.Render(banner+"[x] clear"))
	}

	style := m.theme.InputContainer
	if !m.session.InputEnabled() || m.iform != nil {
		style = m.theme.InputDisabled
	}
	if m.focus == focusInput {
		style = style.BorderForeground(styles.Purple)
	}
	parts = append(parts, style.Width(m.mainWidth()).Render(m.input.View()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderStatusBar() string {
	var hints []components.Shortcut
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}

	status := ""
	switch {
	case m.iform != nil:
		status = "Answer the request above"
	case m.focus == focusTranscript:
		status = "space select  d download  x clear"
	case m.focus == focusSidebar:
		status = "enter open  C-d delete"
	}
	return components.StatusBar{Status: status, Shortcuts: hints}.View(m.theme, m.width)
}
