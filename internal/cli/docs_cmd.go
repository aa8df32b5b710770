// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs_cmd.go - The 'docs' command: the document library.

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/documents"
	"github.com/jeranaias/scholar-tui/internal/util"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

// sortAliases maps --sort names to sort fields.
var sortAliases = map[string]string{
	"folder":  documents.SortFolder,
	"file":    documents.SortFileName,
	"name":    documents.SortFileName,
	"created": documents.SortCreated,
	"updated": documents.SortUpdated,
	"author":  documents.SortAuthor,
}

// HandleDocs handles "docs list|show|download|upload|rm".
func HandleDocs(ctx context.Context, env *Env) error {
	a := env.App
	ctl := documents.NewController(a.Client, a.Meta, a.Config.UI.PageSize, a.Logger.Named("documents"))

	switch env.Args.Subcommand {
	case "show", "cat":
		return docsShow(ctx, env, ctl)
	case "download", "get":
		return docsDownload(ctx, env, ctl)
	case "upload", "add":
		return docsUpload(ctx, env, ctl)
	case "rm", "delete":
		return docsRemove(ctx, env, ctl)
	default:
		return docsList(ctx, env, ctl)
	}
}

// =============================================================================
// LIST
// =============================================================================

func docsList(ctx context.Context, env *Env, ctl *documents.Controller) error {
	p := env.Args.Flags
	t := ctl.Table()

	size, err := p.FlagInt("size", t.Size())
	if err != nil {
		return err
	}
	page, err := p.FlagInt("page", 1)
	if err != nil {
		return err
	}
	field, err := sortField(p.Flag("sort"))
	if err != nil {
		return err
	}
	if p.BoolFlag("desc") && field == "" {
		return NewUsageError("--desc requires --sort")
	}
	form, err := filterForm(p)
	if err != nil {
		return err
	}
	if len(form.Categories) > 0 {
		loadMetadata(ctx, env, ctl)
	}

	t.SetSize(size)
	t.ToggleSort(field)
	if p.BoolFlag("desc") {
		t.ToggleSort(field)
	}

	if err := ctl.ApplyFilter(ctx, form); err != nil {
		if errors.Is(err, validate.ErrInvalid) {
			return NewUsageError(validate.Message(err))
		}
		return NewCommandError("docs", "list", api.UserMessage(err, documents.MsgLoadFailed), err)
	}
	if page > 1 {
		if !t.SetPage(page) {
			return NewUsageError(fmt.Sprintf("--page %d is out of range (1-%d)", page, t.Pages()))
		}
		if err := ctl.Reload(ctx); err != nil {
			return NewCommandError("docs", "list", api.UserMessage(err, documents.MsgLoadFailed), err)
		}
	}

	sf, sd := t.Sort()
	if env.Args.JSON {
		return NewJSONResponse("docs list", DocumentListData{
			Page:      t.Page(),
			Size:      t.Size(),
			Pages:     t.Pages(),
			Total:     t.Total(),
			SortField: sf,
			SortDir:   sd,
			Items:     t.Rows(),
		}).Write(env.Out)
	}

	if t.Total() == 0 {
		env.info("No documents found.")
		return nil
	}
	fmt.Fprintln(env.Out, renderDocuments(t))
	footer := fmt.Sprintf("Page %d/%d  %d document(s)", t.Page(), t.Pages(), t.Total())
	if sf != "" {
		footer += fmt.Sprintf("  sorted by %s %s", sf, sd)
	}
	env.info("%s", DimStyle.Render(footer))
	return nil
}

func renderDocuments(t *documents.Table) string {
	width := GetTerminalWidth()
	nameWidth := max(16, (width-60)/2)

	rows := make([][]string, 0, len(t.Rows()))
	for i, r := range t.Rows() {
		rows = append(rows, []string{
			fmt.Sprint(t.RowNumber(i)),
			r.ID,
			util.TruncateWidth(r.Folder, nameWidth),
			util.TruncateWidth(r.OriginalFileName, nameWidth),
			dateOnly(r.CreatedAt),
			dateOnly(r.UpdatedAt),
			util.TruncateWidth(r.Author, 20),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DimStyle).
		Headers("#", "ID", "FOLDER", "FILE", "CREATED", "UPDATED", "AUTHOR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		String()
}

// sortField resolves a --sort value. Field names and aliases are accepted.
func sortField(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	name = strings.ToLower(name)
	if f, ok := sortAliases[name]; ok {
		return f, nil
	}
	for _, f := range documents.SortFields {
		if f == name {
			return f, nil
		}
	}
	return "", NewUsageError(fmt.Sprintf("unknown sort field %q (use folder, file, created, updated or author)", name))
}

// filterForm reads the filter options shared by 'docs list' and the chat
// /filter command.
func filterForm(p *ArgParser) (documents.FilterForm, error) {
	cats, err := ParsePairs("category", p.Flags("category"))
	if err != nil {
		return documents.FilterForm{}, err
	}
	return documents.FilterForm{
		File:        p.Flag("file"),
		Folder:      p.Flag("folder"),
		Author:      p.Flag("author"),
		CreatedFrom: p.Flag("created-from"),
		CreatedTo:   p.Flag("created-to"),
		UpdatedFrom: p.Flag("updated-from"),
		UpdatedTo:   p.Flag("updated-to"),
		Categories:  cats,
	}, nil
}

// dateOnly trims a timestamp to its date.
func dateOnly(ts string) string {
	if len(ts) > len(documents.DateLayout) {
		return ts[:len(documents.DateLayout)]
	}
	return ts
}

// loadMetadata fetches categories so category options are checked against
// them. Without metadata every option is sent as given.
func loadMetadata(ctx context.Context, env *Env, ctl *documents.Controller) {
	if err := ctl.LoadMetadata(ctx); err != nil {
		env.App.Logger.Warn("metadata unavailable", zap.Error(err))
	}
}

// =============================================================================
// SHOW, DOWNLOAD
// =============================================================================

func docsShow(ctx context.Context, env *Env, ctl *documents.Controller) error {
	id := env.Args.Target
	chunks, err := ctl.Content(ctx, id)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			return &NotFoundError{Resource: "document", ID: id}
		}
		return NewCommandError("docs", "show", api.UserMessage(err, documents.MsgContentFailed), err)
	}

	if env.Args.JSON {
		return NewJSONResponse("docs show", map[string]any{"id": id, "chunks": chunks}).Write(env.Out)
	}
	for i, c := range chunks {
		if i > 0 && !env.Args.Quiet {
			fmt.Fprintln(env.Out, RenderSeparator())
		}
		fmt.Fprintln(env.Out, c)
	}
	return nil
}

func docsDownload(ctx context.Context, env *Env, ctl *documents.Controller) error {
	id := env.Args.Target
	path, err := ctl.Download(ctx, id, env.Args.Out)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			return &NotFoundError{Resource: "document", ID: id}
		}
		return NewCommandError("docs", "download", api.UserMessage(err, "Download failed"), err)
	}
	fmt.Fprintln(env.Out, path)
	return nil
}

// =============================================================================
// UPLOAD, DELETE
// =============================================================================

func docsUpload(ctx context.Context, env *Env, ctl *documents.Controller) error {
	p := env.Args.Flags
	pairs, err := ParsePairs("category", p.Flags("category"))
	if err != nil {
		return err
	}
	form := documents.UploadForm{
		Path:        env.Args.Target,
		SearchPath:  p.Flag("folder"),
		CreatedDate: p.Flag("created"),
		UpdatedDate: p.Flag("updated"),
		Author:      p.Flag("author"),
	}
	if len(pairs) > 0 {
		form.Categories = make(map[string]string, len(pairs))
		for id, vals := range pairs {
			if len(vals) > 1 {
				return NewUsageError(fmt.Sprintf("--category %s given more than once", id))
			}
			form.Categories[id] = vals[0]
		}
		loadMetadata(ctx, env, ctl)
	}

	notice := ctl.Upload(ctx, form)
	if notice.Level == documents.LevelError {
		return NewCommandError("docs", "upload", notice.Text, nil)
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render(notice.Text))
	return nil
}

func docsRemove(ctx context.Context, env *Env, ctl *documents.Controller) error {
	id := env.Args.Target
	notice := ctl.Delete(ctx, id, func(prompt string) bool {
		return env.confirm(fmt.Sprintf("Delete document %s? %s", id, prompt))
	})
	switch notice.Level {
	case documents.LevelNone:
		return errDeclined("scholar docs rm " + id)
	case documents.LevelError:
		return NewCommandError("docs", "rm", notice.Text, nil)
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render(notice.Text))
	return nil
}
