// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

// User-facing texts.
const (
	ConfirmDelete    = "Are you sure ?"
	MsgNoFile        = "Please select a file."
	MsgUploaded      = "Upload successful!"
	MsgUploadFailed  = "Upload failed."
	MsgDeleted       = "File deleted successfully"
	MsgDeleteFailed  = "Error while deleting the file"
	MsgLoadFailed    = "Failed to load documents"
	MsgContentFailed = "Failed to load document content"
)

// Client is the subset of *api.Client the controller uses.
type Client interface {
	ListDocuments(ctx context.Context, q api.DocumentQuery) (*api.DocumentPage, error)
	DocumentContent(ctx context.Context, id string) ([]api.ContentChunk, error)
	Download(ctx context.Context, id string, w io.Writer) (string, error)
	UploadDocument(ctx context.Context, up api.UploadRequest) (string, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Metadata supplies categories and search paths. *api.MetaCache implements it.
type Metadata interface {
	Categories(ctx context.Context) ([]api.Category, error)
	SearchPaths(ctx context.Context) ([]api.SearchPath, error)
	Invalidate()
}

// Level is the severity of a Notice.
type Level int

const (
	LevelNone Level = iota
	LevelSuccess
	LevelError
)

// Notice is the outcome of a user action.
type Notice struct {
	Level Level
	Text  string
}

// OK reports whether the action succeeded.
func (n Notice) OK() bool { return n.Level == LevelSuccess }

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller issues document requests for a Table.
type Controller struct {
	client Client
	meta   Metadata
	table  *Table
	logger *zap.Logger

	categories  []api.Category
	searchPaths []api.SearchPath
}

// NewController creates a controller with an empty table of pageSize rows.
func NewController(client Client, meta Metadata, pageSize int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		client: client,
		meta:   meta,
		table:  NewTable(pageSize),
		logger: logger,
	}
}

// Table returns the table state.
func (c *Controller) Table() *Table { return c.table }

// Categories returns the categories of the last LoadMetadata.
func (c *Controller) Categories() []api.Category { return c.categories }

// SearchPaths returns the folders of the last LoadMetadata.
func (c *Controller) SearchPaths() []api.SearchPath { return c.searchPaths }

// LoadMetadata fetches categories and search paths.
func (c *Controller) LoadMetadata(ctx context.Context) error {
	cats, err := c.meta.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	paths, err := c.meta.SearchPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to load search paths: %w", err)
	}
	c.categories, c.searchPaths = cats, paths
	return nil
}

// Reload fetches the current page.
func (c *Controller) Reload(ctx context.Context) error {
	page, err := c.client.ListDocuments(ctx, c.table.Query())
	if err != nil {
		c.logger.Warn("document listing failed", zap.Error(err))
		return err
	}
	c.table.Apply(page)

	// A shrunken listing can leave the page past the end.
	if pages := c.table.Pages(); c.table.Page() > pages {
		c.table.page = pages
		return c.Reload(ctx)
	}
	return nil
}

// ApplyFilter validates form, applies it and reloads page 1.
func (c *Controller) ApplyFilter(ctx context.Context, form FilterForm) error {
	filter, err := form.Build(c.categories)
	if err != nil {
		return err
	}
	c.table.SetFilter(filter)
	return c.Reload(ctx)
}

// ResetFilter clears the filter and reloads page 1.
func (c *Controller) ResetFilter(ctx context.Context) error {
	c.table.ResetFilter()
	return c.Reload(ctx)
}

// Upload sends form and reloads the table on success.
func (c *Controller) Upload(ctx context.Context, form UploadForm) Notice {
	req, f, err := form.Open(c.categories)
	if err != nil {
		if errors.Is(err, ErrNoFile) {
			return Notice{Level: LevelError, Text: MsgNoFile}
		}
		if errors.Is(err, validate.ErrInvalid) {
			return Notice{Level: LevelError, Text: validate.Message(err)}
		}
		return Notice{Level: LevelError, Text: err.Error()}
	}
	defer f.Close()

	if _, err := c.client.UploadDocument(ctx, req); err != nil {
		c.logger.Warn("upload failed", zap.String("file", req.FileName), zap.Error(err))
		return Notice{Level: LevelError, Text: api.UserMessage(err, MsgUploadFailed)}
	}
	c.logger.Info("document uploaded", zap.String("file", req.FileName))

	// The upload may have introduced a new folder.
	c.meta.Invalidate()
	if err := c.Reload(ctx); err != nil {
		c.logger.Debug("reload after upload failed", zap.Error(err))
	}
	return Notice{Level: LevelSuccess, Text: MsgUploaded}
}

// Delete asks confirm and deletes id when it returns true. A declined
// confirmation returns a LevelNone notice and issues no request.
func (c *Controller) Delete(ctx context.Context, id string, confirm func(prompt string) bool) Notice {
	if confirm == nil || !confirm(ConfirmDelete) {
		return Notice{}
	}
	if err := c.client.DeleteDocument(ctx, id); err != nil {
		c.logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return Notice{Level: LevelError, Text: MsgDeleteFailed}
	}
	c.logger.Info("document deleted", zap.String("id", id))
	if err := c.Reload(ctx); err != nil {
		c.logger.Debug("reload after delete failed", zap.Error(err))
	}
	return Notice{Level: LevelSuccess, Text: MsgDeleted}
}

// Content returns the text chunks of id in order.
func (c *Controller) Content(ctx context.Context, id string) ([]string, error) {
	chunks, err := c.client.DocumentContent(ctx, id)
	if err != nil {
		c.logger.Warn("content fetch failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	out := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, ch.PageContent)
	}
	return out, nil
}

// Download saves id into dir under the name the service reports and
// returns the written path. An existing file is replaced.
func (c *Controller) Download(ctx context.Context, id, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	name, err := c.client.Download(ctx, id, tmp)
	if err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := filepath.Join(dir, safeName(name, id))
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", dest, err)
	}
	success = true
	c.logger.Info("document downloaded", zap.String("id", id), zap.String("path", dest))
	return dest, nil
}

// safeName reduces a service-provided file name to a plain base name.
func safeName(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}
