// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/app"
	core "github.com/jeranaias/scholar-tui/internal/documents"
	"github.com/jeranaias/scholar-tui/internal/ui/components"
	"github.com/jeranaias/scholar-tui/internal/ui/styles"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

// =============================================================================
// MESSAGES
// =============================================================================

// BackMsg asks the parent to leave the document screen.
type BackMsg struct{}

type opKind int

const (
	opLoad opKind = iota
	opReload
	opFilter
	opUpload
	opDelete
)

// loadMsg starts the initial load.
type loadMsg struct{}

// opDoneMsg ends a controller operation.
type opDoneMsg struct {
	op     opKind
	snap   snapshot
	notice core.Notice
	err    error
}

type contentMsg struct {
	id     string
	name   string
	chunks []string
	err    error
}

type downloadedMsg struct {
	path string
	err  error
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// snapshot is a copy of the controller state taken on the goroutine that
// ran the operation.
type snapshot struct {
	rows        []api.DocumentRow
	total       int
	page        int
	size        int
	pages       int
	sortField   string
	sortDir     string
	filter      api.Filter
	pagination  []core.PageItem
	categories  []api.Category
	searchPaths []api.SearchPath
}

func takeSnapshot(ctl *core.Controller) snapshot {
	t := ctl.Table()
	field, dir := t.Sort()
	return snapshot{
		rows:        append([]api.DocumentRow(nil), t.Rows()...),
		total:       t.Total(),
		page:        t.Page(),
		size:        t.Size(),
		pages:       t.Pages(),
		sortField:   field,
		sortDir:     dir,
		filter:      t.Filter(),
		pagination:  t.Pagination(),
		categories:  append([]api.Category(nil), ctl.Categories()...),
		searchPaths: append([]api.SearchPath(nil), ctl.SearchPaths()...),
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the document screen.
type Model struct {
	ctx    context.Context
	ctl    *core.Controller
	logger *zap.Logger

	theme *styles.Theme
	keys  KeyMap

	width  int
	height int

	snap snapshot
	busy bool

	table   table.Model
	spinner components.Spinner
	toasts  *components.ToastManager
	ticking bool

	confirm       components.Confirm
	pendingDelete string

	form     components.Form
	formOpen bool

	content     *contentView
	downloadDir string
}

// New creates the document screen.
func New(ctx context.Context, a *app.App, theme *styles.Theme) Model {
	logger := a.Logger.Named("documents")
	ctl := core.NewController(a.Client, a.Meta, a.Config.UI.PageSize, logger)

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	t.KeyMap = tableKeyMap()
	s := table.DefaultStyles()
	s.Header = theme.TableHeader
	s.Selected = theme.TableSelected
	t.SetStyles(s)

	m := Model{
		ctx:         ctx,
		ctl:         ctl,
		logger:      logger,
		theme:       theme,
		keys:        DefaultKeyMap(),
		table:       t,
		spinner:     components.NewSpinner(),
		toasts:      components.NewToastManager(a.Config.ToastDuration()),
		downloadDir: ".",
	}
	m.snap = takeSnapshot(ctl)
	return m
}

// SetDownloadDir sets where downloads are written.
func (m *Model) SetDownloadDir(dir string) { m.downloadDir = dir }

// Init loads metadata and the first page.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return loadMsg{} }
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadMsg:
		logger := m.logger
		cmd := m.start(opLoad, "Loading documents", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			if err := ctl.LoadMetadata(ctx); err != nil {
				logger.Warn("metadata load failed", zap.Error(err))
			}
			return core.Notice{}, ctl.Reload(ctx)
		})
		return m, cmd

	case opDoneMsg:
		return m.finish(msg)

	case contentMsg:
		if msg.err != nil {
			m.toasts.AddError(api.UserMessage(msg.err, core.MsgContentFailed))
			return m.withToastTick(nil)
		}
		m.content = newContentView(msg.id, msg.name, msg.chunks, m.width, m.contentHeight())
		return m, nil

	case downloadedMsg:
		if msg.err != nil {
			m.logger.Warn("download failed", zap.Error(msg.err))
			m.toasts.AddError(api.UserMessage(msg.err, "Download failed"))
		} else {
			m.toasts.AddSuccess("Saved " + msg.path)
		}
		return m.withToastTick(nil)

	case components.ConfirmResultMsg:
		id := m.pendingDelete
		m.pendingDelete = ""
		if !msg.Confirmed || id == "" {
			return m, nil
		}
		cmd := m.start(opDelete, "Deleting", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			return ctl.Delete(ctx, id, func(string) bool { return true }), nil
		})
		return m, cmd

	case components.FormSubmitMsg:
		return m.submitForm(msg.ID)

	case components.FormCancelMsg:
		m.formOpen = false
		return m, nil

	case components.FormResetMsg:
		if !m.formOpen || msg.ID != components.FilterFormID {
			return m, nil
		}
		m.formOpen = false
		cmd := m.start(opFilter, "Resetting filter", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			return core.Notice{}, ctl.ResetFilter(ctx)
		})
		return m, cmd

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
		return m, cmd
	}
	return m, nil
}

// View renders the document screen.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// OPERATIONS
// =============================================================================

type operation func(ctx context.Context, ctl *core.Controller) (core.Notice, error)

// start runs op on the controller unless another operation is running.
func (m *Model) start(kind opKind, label string, op operation) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.spinner.SetMessage(label)
	ctx, ctl := m.ctx, m.ctl
	return tea.Batch(m.spinner.Start(), func() tea.Msg {
		notice, err := op(ctx, ctl)
		return opDoneMsg{op: kind, snap: takeSnapshot(ctl), notice: notice, err: err}
	})
}

func (m Model) finish(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.spinner.Stop()
	m.snap = msg.snap
	m.syncTable()

	if msg.err != nil {
		m.toasts.AddError(api.UserMessage(msg.err, core.MsgLoadFailed))
	}

	switch msg.notice.Level {
	case core.LevelSuccess:
		m.toasts.AddSuccess(msg.notice.Text)
		if msg.op == opUpload {
			m.formOpen = false
		}
	case core.LevelError:
		m.toasts.AddError(msg.notice.Text)
		if msg.op == opUpload && m.formOpen {
			m.form.Err = msg.notice.Text
		}
	}
	m.layout()
	return m.withToastTick(nil)
}

func (m Model) submitForm(id string) (tea.Model, tea.Cmd) {
	if !m.formOpen || m.busy {
		return m, nil
	}
	cats := m.snap.categories

	switch id {
	case components.FilterFormID:
		ff := components.FilterFormValues(&m.form, cats)
		if err := ff.Validate(); err != nil {
			m.form.Err = validate.Message(err)
			return m, nil
		}
		m.formOpen = false
		cmd := m.start(opFilter, "Filtering", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			return core.Notice{}, ctl.ApplyFilter(ctx, ff)
		})
		return m, cmd

	case components.UploadFormID:
		up := components.UploadFormValues(&m.form, cats)
		m.form.Err = ""
		cmd := m.start(opUpload, "Uploading", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			return ctl.Upload(ctx, up), nil
		})
		return m, cmd
	}
	return m, nil
}

// reload runs fn on the table and fetches the resulting page.
func (m *Model) reload(label string, fn func(t *core.Table) bool) tea.Cmd {
	return m.start(opReload, label, func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
		if fn != nil && !fn(ctl.Table()) {
			return core.Notice{}, nil
		}
		return core.Notice{}, ctl.Reload(ctx)
	})
}

func (m Model) contentCmd(row api.DocumentRow) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		chunks, err := ctl.Content(ctx, row.ID)
		return contentMsg{id: row.ID, name: row.OriginalFileName, chunks: chunks, err: err}
	}
}

// downloadCmd saves a file. It reads no table state and may run alongside
// an operation.
func (m Model) downloadCmd(id string) tea.Cmd {
	ctx, ctl, dir := m.ctx, m.ctl, m.downloadDir
	return func() tea.Msg {
		path, err := ctl.Download(ctx, id, dir)
		return downloadedMsg{path: path, err: err}
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.confirm.IsOpen() {
		var cmd tea.Cmd
		m.confirm, cmd = m.confirm.Update(msg)
		return m, cmd
	}
	if m.formOpen {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	if m.content != nil {
		return m.handleContentKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Dismiss()
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		cmd := m.reload("Reloading", nil)
		return m, cmd
	case key.Matches(msg, m.keys.PrevPage):
		page := m.snap.page - 1
		cmd := m.reload("Loading page", func(t *core.Table) bool { return t.SetPage(page) })
		return m, cmd
	case key.Matches(msg, m.keys.NextPage):
		page := m.snap.page + 1
		cmd := m.reload("Loading page", func(t *core.Table) bool { return t.SetPage(page) })
		return m, cmd
	case key.Matches(msg, m.keys.PageSize):
		size := nextPageSize(m.snap.size)
		cmd := m.reload("Resizing", func(t *core.Table) bool { t.SetSize(size); return true })
		return m, cmd
	case key.Matches(msg, m.keys.Sort):
		field := core.SortFields[int(msg.String()[0]-'1')]
		cmd := m.reload("Sorting", func(t *core.Table) bool { t.ToggleSort(field); return true })
		return m, cmd
	case key.Matches(msg, m.keys.Filter):
		if m.busy {
			return m, nil
		}
		m.form = components.NewFilterForm(m.snap.filter, m.snap.categories)
		m.formOpen = true
		return m, nil
	case key.Matches(msg, m.keys.ResetFilter):
		cmd := m.start(opFilter, "Resetting filter", func(ctx context.Context, ctl *core.Controller) (core.Notice, error) {
			return core.Notice{}, ctl.ResetFilter(ctx)
		})
		return m, cmd
	case key.Matches(msg, m.keys.Upload):
		if m.busy {
			return m, nil
		}
		m.form = components.NewUploadForm(m.snap.searchPaths, m.snap.categories)
		m.formOpen = true
		return m, nil
	}

	row, ok := m.selectedRow()
	switch {
	case key.Matches(msg, m.keys.Open):
		if ok {
			return m, m.contentCmd(row)
		}
		return m, nil
	case key.Matches(msg, m.keys.Download):
		if ok {
			return m, m.downloadCmd(row.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if ok && !m.busy {
			m.pendingDelete = row.ID
			m.confirm.Open("delete-document", core.ConfirmDelete)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleContentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), msg.String() == "q":
		m.content = nil
		return m, nil
	case key.Matches(msg, m.keys.Download):
		return m, m.downloadCmd(m.content.id)
	case key.Matches(msg, m.keys.PrevPage):
		m.content.prev()
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		m.content.next()
		return m, nil
	}
	var cmd tea.Cmd
	m.content.viewport, cmd = m.content.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) selectedRow() (api.DocumentRow, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.snap.rows) {
		return api.DocumentRow{}, false
	}
	return m.snap.rows[i], true
}

// nextPageSize cycles through the selectable page sizes.
func nextPageSize(current int) int {
	for i, s := range core.PageSizes {
		if s == current {
			return core.PageSizes[(i+1)%len(core.PageSizes)]
		}
	}
	return core.PageSizes[0]
}

func (m Model) withToastTick(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.ticking || !m.toasts.HasToasts() {
		return m, cmd
	}
	m.ticking = true
	m.layout()
	return m, tea.Batch(cmd, m.toasts.TickCmd())
}
