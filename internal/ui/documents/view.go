// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/scholar-tui/internal/api"
	core "github.com/jeranaias/scholar-tui/internal/documents"
	"github.com/jeranaias/scholar-tui/internal/ui/components"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
	"github.com/jeranaias/scholar-tui/internal/util"
)

// =============================================================================
// TABLE
// =============================================================================

// column is a table column and the sort field it maps to.
type column struct {
	title string
	sort  string
	width int
	flex  bool
	wide  bool // shown only in wide layouts
}

var columnSpecs = []column{
	{title: "#", width: 4},
	{title: "File", sort: core.SortFileName, width: 16, flex: true},
	{title: "Folder", sort: core.SortFolder, width: 12, flex: true},
	{title: "Author", sort: core.SortAuthor, width: 12, wide: true},
	{title: "Created", sort: core.SortCreated, width: 10},
	{title: "Updated", sort: core.SortUpdated, width: 10},
	{title: "Categories", width: 14, flex: true, wide: true},
}

// visibleColumns returns the columns shown at the current width.
func (m *Model) visibleColumns() []column {
	wide := m.theme.GetLayoutMode() != styles.LayoutNarrow
	var cols []column
	fixed, flex := 0, 0
	for _, c := range columnSpecs {
		if c.wide && !wide {
			continue
		}
		cols = append(cols, c)
		fixed += c.width + 2
		if c.flex {
			flex++
		}
	}
	if extra := m.width - 2 - fixed; extra > 0 && flex > 0 {
		for i := range cols {
			if cols[i].flex {
				cols[i].width += extra / flex
			}
		}
	}
	return cols
}

func (m *Model) tableColumns(cols []column) []table.Column {
	out := make([]table.Column, len(cols))
	for i, c := range cols {
		title := c.title
		if c.sort != "" && c.sort == m.snap.sortField {
			if m.snap.sortDir == api.SortDesc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		out[i] = table.Column{Title: title, Width: c.width}
	}
	return out
}

func (m *Model) tableRows(cols []column) []table.Row {
	rows := make([]table.Row, len(m.snap.rows))
	for i, r := range m.snap.rows {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			var v string
			switch c.title {
			case "#":
				v = strconv.Itoa((m.snap.page-1)*m.snap.size + i + 1)
			case "File":
				v = r.OriginalFileName
			case "Folder":
				v = r.Folder
			case "Author":
				v = r.Author
			case "Created":
				v = shortDate(r.CreatedAt)
			case "Updated":
				v = shortDate(r.UpdatedAt)
			case "Categories":
				v = r.CategoryValues(m.snap.categories)
			}
			row[j] = util.TruncateWidth(util.SingleLine(v), c.width)
		}
		rows[i] = row
	}
	return rows
}

// syncTable loads the snapshot into the table widget.
func (m *Model) syncTable() {
	cols := m.visibleColumns()
	// Rows are cleared first so they never have more cells than columns.
	m.table.SetRows(nil)
	m.table.SetColumns(m.tableColumns(cols))
	rows := m.tableRows(cols)
	m.table.SetRows(rows)
	if len(rows) == 0 {
		return
	}
	if c := m.table.Cursor(); c < 0 || c >= len(rows) {
		m.table.SetCursor(min(max(c, 0), len(rows)-1))
	}
}

// shortDate keeps the date part of a timestamp.
func shortDate(s string) string {
	if len(s) > 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) toastHeight() int {
	if !m.toasts.HasToasts() {
		return 0
	}
	return lipgloss.Height(components.RenderToastStack(m.toasts.GetToasts(), m.width, 0))
}

// layout sizes the table for the window. Header, pagination and status
// bar take one line each.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(3, m.height-4-m.toastHeight()))
	m.syncTable()
	if m.content != nil {
		m.content.resize(m.width, m.contentHeight())
	}
}

func (m *Model) contentHeight() int {
	return max(3, m.height-6-m.toastHeight())
}

// =============================================================================
// CONTENT VIEWER
// =============================================================================

// contentView shows the stored chunks of one document, one per page.
type contentView struct {
	id       string
	name     string
	chunks   []string
	pager    paginator.Model
	viewport viewport.Model
	width    int
}

func newContentView(id, name string, chunks []string, width, height int) *contentView {
	p := paginator.New()
	p.Type = paginator.Arabic
	p.PerPage = 1
	p.SetTotalPages(max(1, len(chunks)))

	if name == "" {
		name = id
	}
	c := &contentView{id: id, name: name, chunks: chunks, pager: p, viewport: viewport.New(width, height)}
	c.resize(width, height)
	return c
}

func (c *contentView) resize(width, height int) {
	c.width = max(10, width-4)
	c.viewport.Width = c.width
	c.viewport.Height = height
	c.show()
}

func (c *contentView) show() {
	text := "(empty document)"
	if c.pager.Page < len(c.chunks) {
		text = c.chunks[c.pager.Page]
	}
	c.viewport.SetContent(lipgloss.NewStyle().Width(c.width).Render(text))
	c.viewport.GotoTop()
}

func (c *contentView) prev() {
	c.pager.PrevPage()
	c.show()
}

func (c *contentView) next() {
	c.pager.NextPage()
	c.show()
}

func (c *contentView) view(theme *styles.Theme) string {
	title := theme.HeaderTitle.Render(util.TruncateWidth(c.name, c.width))
	footer := fmt.Sprintf("chunk %s  ←/→ page  s download  esc close", c.pager.View())
	body := lipgloss.JoinVertical(lipgloss.Left, title, c.viewport.View(), theme.ShortcutDesc.Render(footer))
	return theme.ContentViewBox.Render(body)
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
	if m.formOpen {
		body := m.form.View(m.theme, min(70, m.width-6))
		if m.busy {
			body += "\n" + m.spinner.View()
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.theme.Dialog.Render(body))
	}

	var main string
	if m.content != nil {
		main = m.content.view(m.theme)
	} else {
		main = lipgloss.JoinVertical(lipgloss.Left, m.table.View(), m.renderPagination())
	}

	parts := []string{m.renderHeader(), main}
	if m.toasts.HasToasts() {
		parts = append(parts, components.RenderToastStack(m.toasts.GetToasts(), m.width, 0))
	}
	parts = append(parts, m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	line := m.theme.HeaderTitle.Render("scholar") + "  Documents"
	line += fmt.Sprintf("  %d total", m.snap.total)
	if !m.snap.filter.IsZero() {
		line += "  [filtered]"
	}
	if m.busy {
		line += "  " + m.spinner.View()
	}
	return m.theme.Header.Width(m.width).Render(line)
}

// renderPagination renders the page controls and the page size.
func (m Model) renderPagination() string {
	items := make([]string, 0, len(m.snap.pagination)+1)
	for _, it := range m.snap.pagination {
		style := m.theme.PageItem
		switch {
		case it.Active:
			style = m.theme.PageActive
		case it.Disabled:
			style = m.theme.PageDisabled
		}
		items = append(items, style.Render(it.Label))
	}
	size := m.theme.ShortcutDesc.Render(fmt.Sprintf("  %d per page", m.snap.size))
	return strings.Join(items, " ") + size
}

func (m Model) renderStatusBar() string {
	var hints []components.Shortcut
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	status := fmt.Sprintf("page %d/%d", m.snap.page, m.snap.pages)
	if len(m.snap.rows) == 0 && !m.busy {
		status = "no documents"
	}
	return components.StatusBar{Status: status, Shortcuts: hints}.View(m.theme, m.width)
}
