// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/api/apitest"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	c, err := api.NewClient(srv.BaseURL())
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	_, err := api.NewClient("ftp://example.com/api/")
	assert.Error(t, err)
}

func TestClient_Metadata(t *testing.T) {
	c, srv := newClient(t)
	srv.SetMetadata(
		[]api.Category{{ID: "topic", Name: "Topic", Values: []string{"law", "tax"}}},
		[]api.SearchPath{{Folder: "/contracts"}},
	)

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, []string{"law", "tax"}, cats[0].Values)

	paths, err := c.SearchPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/contracts", paths[0].Folder)
}

func TestClient_ListDocumentsSendsCombinedQuery(t *testing.T) {
	c, srv := newClient(t)
	srv.AddDocument(map[string]string{"id": "1", "original_file_name": "b.pdf", "folder": "/x", "topic": "law"}, nil, nil)
	srv.AddDocument(map[string]string{"id": "2", "original_file_name": "a.pdf", "folder": "/x"}, nil, nil)

	page, err := c.ListDocuments(context.Background(), api.DocumentQuery{
		Filter:    api.Filter{Folder: "/x"},
		Page:      1,
		Size:      10,
		SortField: "original_file_name",
		SortDir:   api.SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a.pdf", page.Items[0].OriginalFileName)
	assert.Equal(t, "law", page.Items[1].Categories["topic"])

	q := srv.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "/x", q[0].Folder)
	assert.Equal(t, "original_file_name", q[0].SortField)
}

func TestClient_UploadMultipart(t *testing.T) {
	c, srv := newClient(t)

	msg, err := c.UploadDocument(context.Background(), api.UploadRequest{
		FileName:   "/tmp/report.pdf",
		File:       strings.NewReader("%PDF-1.4"),
		SearchPath: "/reports",
		Author:     "Ann",
		Categories: map[string]string{"topic": "tax", "empty": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "File uploaded successfully", msg)

	ups := srv.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, "report.pdf", ups[0].FileName)
	assert.Equal(t, "%PDF-1.4", ups[0].Content)
	assert.Equal(t, "/reports", ups[0].Fields["search_path"])
	assert.Equal(t, "Ann", ups[0].Fields["file_author"])
	assert.Equal(t, "tax", ups[0].Fields["topic"])
	assert.NotContains(t, ups[0].Fields, "created_date")
	assert.NotContains(t, ups[0].Fields, "empty")
}

func TestClient_UploadRejectedReason(t *testing.T) {
	c, srv := newClient(t)
	srv.FailRoute("POST /document_manager/upload", http.StatusBadRequest, `{"error":"File type not allowed"}`)

	_, err := c.UploadDocument(context.Background(), api.UploadRequest{
		FileName: "x.exe",
		File:     strings.NewReader("MZ"),
	})
	require.Error(t, err)
	assert.Equal(t, "File type not allowed", api.UserMessage(err, "Upload failed."))
}

func TestClient_DownloadAndContent(t *testing.T) {
	c, srv := newClient(t)
	srv.AddDocument(map[string]string{"id": "d1", "original_file_name": "notes.txt"}, []string{"one", "two"}, []byte("hello"))

	var buf bytes.Buffer
	name, err := c.Download(context.Background(), "d1", &buf)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", name)
	assert.Equal(t, "hello", buf.String())

	chunks, err := c.DocumentContent(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "two", chunks[1].PageContent)

	_, err = c.Download(context.Background(), "missing", &buf)
	assert.Equal(t, "File not found", api.UserMessage(err, ""))
}

func TestClient_DeleteDocument(t *testing.T) {
	c, srv := newClient(t)
	require.NoError(t, c.DeleteDocument(context.Background(), "d9"))
	assert.Equal(t, []string{"d9"}, srv.DeletedDocuments())
	assert.ErrorIs(t, c.DeleteDocument(context.Background(), ""), api.ErrEmptyID)
}

func TestClient_ChatLifecycle(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	id, err := c.NewChatID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	srv.SetHistory(id, []api.Turn{
		{Request: &api.ChatMessage{Content: "second"}},
		{Request: &api.ChatMessage{Content: "first"}, Response: &api.ChatMessage{Content: "answer"}},
	})
	turns, err := c.ChatHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Request.Content)
	assert.Equal(t, "answer", turns[1].Response.Content)

	require.NoError(t, c.SendPrompt(ctx, id, api.PromptRequest{Query: "hi"}))
	prompts := srv.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, "hi", prompts[0].Request.Query)
	assert.NotNil(t, prompts[0].Request.SelectedDocuments)

	require.NoError(t, c.DeleteChat(ctx, id))
	assert.Equal(t, []string{id}, srv.DeletedChats())
}

func TestClient_CurrentStatePlainOk(t *testing.T) {
	c, srv := newClient(t)

	turn, err := c.CurrentState(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, turn.Documents)

	srv.SetCurrentState("c1", &api.Turn{Documents: []api.Fragment{{PageContent: "x", Metadata: api.FragmentMeta{FileID: "A"}}}})
	turn, err = c.CurrentState(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, turn.Documents, 1)
	assert.Equal(t, "A", turn.Documents[0].Metadata.FileID)
}

func TestClient_InterruptStatusAndResume(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	status, err := c.InterruptStatus(ctx, "c1")
	require.NoError(t, err)
	_, pending := status.Pending()
	assert.False(t, pending)

	srv.SetInterrupt("c1", map[string]any{"type": api.InterruptRecipientInfo, "message": "Who?"})
	status, err = c.InterruptStatus(ctx, "c1")
	require.NoError(t, err)
	in, pending := status.Pending()
	require.True(t, pending)
	assert.IsType(t, api.RecipientInfoRequest{}, in)

	require.NoError(t, c.Resume(ctx, "c1", api.Confirmation{Confirmed: true}))
	require.NoError(t, c.Resume(ctx, "c1", nil))

	resumes := srv.Resumes()
	require.Len(t, resumes, 2)
	assert.JSONEq(t, `{"confirmed":true}`, string(resumes[0].Payload))
	assert.JSONEq(t, `{}`, string(resumes[1].Payload))
}

func TestClient_StatusErrors(t *testing.T) {
	c, srv := newClient(t)
	srv.FailRoute("POST /chat/c1", http.StatusInternalServerError, "boom")

	err := c.SendPrompt(context.Background(), "c1", api.PromptRequest{Query: "x"})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Body)
}

func TestClient_OpenStream(t *testing.T) {
	c, srv := newClient(t)
	srv.QueueStream("c1", apitest.Token("Hel"), apitest.Token("lo"), apitest.End())

	s, err := c.OpenStream(context.Background(), "c1")
	require.NoError(t, err)
	defer s.Close()

	var got []api.StreamEvent
	for {
		ev, err := s.Next()
		require.NoError(t, err)
		got = append(got, ev)
		if _, ok := ev.(api.StreamEnd); ok {
			break
		}
	}
	assert.Equal(t, []api.StreamEvent{
		api.TokenChunk{Text: "Hel"},
		api.TokenChunk{Text: "lo"},
		api.StreamEnd{},
	}, got)
	assert.Equal(t, 1, srv.StreamOpens("c1"))
}

func TestClient_StreamCloseUnblocksNext(t *testing.T) {
	c, srv := newClient(t)
	srv.QueueStream("c1", apitest.Tool("working"), apitest.Block())

	s, err := c.OpenStream(context.Background(), "c1")
	require.NoError(t, err)

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, api.ToolNotice{Content: "working"}, ev)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, api.ErrStreamClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestClient_OpenStreamRejected(t *testing.T) {
	c, srv := newClient(t)
	srv.FailRoute("GET /chat/c1/stream", http.StatusNotFound, `"please provide chat_id"`)

	_, err := c.OpenStream(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestDocumentRow_CategoryValues(t *testing.T) {
	var row api.DocumentRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","original_file_name":"a.pdf","topic":"law","region":"EU","size":42}`), &row))

	cats := []api.Category{{ID: "region"}, {ID: "topic"}, {ID: "missing"}}
	assert.Equal(t, "EU, law", row.CategoryValues(cats))
	assert.Equal(t, []string{"region", "topic"}, row.CategoryKeys())
}

func TestDocumentPage_TotalFallback(t *testing.T) {
	var page api.DocumentPage
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"id":"1"},{"id":"2"}]}`), &page))
	assert.Equal(t, 2, page.Total)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	c, err := api.NewClient(srv.BaseURL(), api.WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = c.Categories(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Categories(ctx)
	assert.Error(t, err)
}
