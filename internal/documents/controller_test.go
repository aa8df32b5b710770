// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/api/apitest"
)

func newTestController(t *testing.T) (*Controller, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.BaseURL(), api.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	meta := api.NewMetaCache(client, time.Minute)
	return NewController(client, meta, 10, zap.NewNop()), srv
}

func addDocs(srv *apitest.Server, n int, author string) {
	for i := 1; i <= n; i++ {
		srv.AddDocument(map[string]string{
			"id":                 fmt.Sprintf("%s-%02d", author, i),
			"original_file_name": fmt.Sprintf("file-%02d.pdf", i),
			"folder":             "docs",
			"author":             author,
		}, nil, nil)
	}
}

func TestController_ReloadAndFilter(t *testing.T) {
	c, srv := newTestController(t)
	ctx := context.Background()
	addDocs(srv, 15, "ann")
	addDocs(srv, 3, "bob")

	require.NoError(t, c.Reload(ctx))
	assert.Equal(t, 18, c.Table().Total())
	assert.Len(t, c.Table().Rows(), 10)

	require.True(t, c.Table().SetPage(2))
	require.NoError(t, c.Reload(ctx))
	assert.Len(t, c.Table().Rows(), 8)

	require.NoError(t, c.ApplyFilter(ctx, FilterForm{Author: "bob"}))
	assert.Equal(t, 1, c.Table().Page())
	assert.Equal(t, 3, c.Table().Total())

	queries := srv.Queries()
	last := queries[len(queries)-1]
	assert.Equal(t, "bob", last.Author)
	assert.Equal(t, 1, last.Page)

	require.NoError(t, c.ResetFilter(ctx))
	assert.Equal(t, 18, c.Table().Total())
}

func TestController_ApplyFilterRejectsInvalid(t *testing.T) {
	c, srv := newTestController(t)
	err := c.ApplyFilter(context.Background(), FilterForm{CreatedFrom: "nope"})
	assert.Error(t, err)
	assert.Empty(t, srv.Queries())
}

func TestController_ReloadClampsPastEnd(t *testing.T) {
	c, srv := newTestController(t)
	ctx := context.Background()
	addDocs(srv, 11, "ann")

	require.NoError(t, c.Reload(ctx))
	require.True(t, c.Table().SetPage(2))
	require.NoError(t, c.Reload(ctx))
	require.Len(t, c.Table().Rows(), 1)

	n := c.Delete(ctx, "ann-11", func(string) bool { return true })
	require.True(t, n.OK())
	assert.Equal(t, 1, c.Table().Page())
	assert.Len(t, c.Table().Rows(), 10)
}

func TestController_LoadMetadata(t *testing.T) {
	c, srv := newTestController(t)
	srv.SetMetadata(testCategories, []api.SearchPath{{Folder: "contracts"}})

	require.NoError(t, c.LoadMetadata(context.Background()))
	assert.Equal(t, testCategories, c.Categories())
	assert.Equal(t, []api.SearchPath{{Folder: "contracts"}}, c.SearchPaths())
}

func TestController_Upload(t *testing.T) {
	c, srv := newTestController(t)
	srv.SetMetadata(testCategories, nil)
	ctx := context.Background()
	require.NoError(t, c.LoadMetadata(ctx))

	path := writeTemp(t, "contract.txt", "terms")
	n := c.Upload(ctx, UploadForm{Path: path, SearchPath: "legal", Author: "Ann", Categories: map[string]string{"lang": "en"}})
	assert.Equal(t, Notice{Level: LevelSuccess, Text: MsgUploaded}, n)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "contract.txt", uploads[0].FileName)
	assert.Equal(t, "terms", uploads[0].Content)
	assert.Equal(t, "legal", uploads[0].Fields["search_path"])
	assert.Equal(t, "Ann", uploads[0].Fields["file_author"])
	assert.Equal(t, "en", uploads[0].Fields["lang"])

	assert.Equal(t, 1, c.Table().Total(), "table reloaded")
}

func TestController_UploadFailures(t *testing.T) {
	c, srv := newTestController(t)
	ctx := context.Background()

	n := c.Upload(ctx, UploadForm{})
	assert.Equal(t, Notice{Level: LevelError, Text: MsgNoFile}, n)

	path := writeTemp(t, "a.exe", "x")
	srv.FailRoute("POST /document_manager/upload", 400, `{"error":"Unsupported file type"}`)
	n = c.Upload(ctx, UploadForm{Path: path})
	assert.Equal(t, Notice{Level: LevelError, Text: "Unsupported file type"}, n)

	srv.FailRoute("POST /document_manager/upload", 500, "")
	n = c.Upload(ctx, UploadForm{Path: path})
	assert.Equal(t, Notice{Level: LevelError, Text: MsgUploadFailed}, n)
}

func TestController_DeleteNeedsConfirmation(t *testing.T) {
	c, srv := newTestController(t)
	ctx := context.Background()
	addDocs(srv, 2, "ann")

	var asked string
	n := c.Delete(ctx, "ann-01", func(prompt string) bool {
		asked = prompt
		return false
	})
	assert.Equal(t, ConfirmDelete, asked)
	assert.Equal(t, Notice{}, n)
	assert.Empty(t, srv.DeletedDocuments())

	n = c.Delete(ctx, "ann-01", nil)
	assert.Equal(t, Notice{}, n)
	assert.Empty(t, srv.DeletedDocuments())

	n = c.Delete(ctx, "ann-01", func(string) bool { return true })
	assert.Equal(t, Notice{Level: LevelSuccess, Text: MsgDeleted}, n)
	assert.Equal(t, []string{"ann-01"}, srv.DeletedDocuments())
	assert.Equal(t, 1, c.Table().Total())
}

func TestController_DeleteFailureUsesFixedText(t *testing.T) {
	c, srv := newTestController(t)
	srv.FailRoute("DELETE /document_manager/x", 404, `{"error":"not found"}`)

	n := c.Delete(context.Background(), "x", func(string) bool { return true })
	assert.Equal(t, Notice{Level: LevelError, Text: MsgDeleteFailed}, n)
}

func TestController_ContentAndDownload(t *testing.T) {
	c, srv := newTestController(t)
	ctx := context.Background()
	srv.AddDocument(map[string]string{"id": "d1", "original_file_name": "report.pdf"},
		[]string{"page one", "page two"}, []byte("%PDF"))

	lines, err := c.Content(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, lines)

	dir := filepath.Join(t.TempDir(), "out")
	path, err := c.Download(ctx, "d1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	_, err = c.Download(ctx, "missing", dir)
	require.Error(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed download leaves no temp file")
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a.pdf", safeName("a.pdf", "id"))
	assert.Equal(t, "passwd", safeName("../../etc/passwd", "id"))
	assert.Equal(t, "x.txt", safeName(`C:\tmp\x.txt`, "id"))
	assert.Equal(t, "id", safeName("", "id"))
	assert.Equal(t, "id", safeName("..", "id"))
}
