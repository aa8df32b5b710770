// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/transcript"
)

func sampleConversation() *Conversation {
	return &Conversation{
		ChatID:     "c1",
		Title:      "Quarterly report",
		ExportedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Entries: []Entry{
			{Role: RoleUser, Content: "Summarize <script>alert(1)</script>"},
			{Role: RoleAssistant, Content: "Revenue grew.\n\n```go\nfmt.Println(\"<b>\")\n```"},
			{Role: RoleSources, Sources: []Source{{
				FileID:   "f1",
				FileName: "q3<draft>.pdf",
				Folder:   "finance",
				Excerpts: []string{"up 12% & rising"},
			}}},
		},
	}
}

func TestFromTurnsOrdersOldestFirst(t *testing.T) {
	turns := []api.Turn{
		{
			Request:  &api.ChatMessage{Content: "second"},
			Response: &api.ChatMessage{Content: "answer two"},
		},
		{
			Request:  &api.ChatMessage{Content: "first"},
			Response: &api.ChatMessage{Content: "answer one"},
			Documents: []api.Fragment{
				{PageContent: "a", Metadata: api.FragmentMeta{FileID: "f1", OriginalFileName: "a.pdf"}},
				{PageContent: "b", Metadata: api.FragmentMeta{FileID: "f1", OriginalFileName: "a.pdf"}},
			},
		},
	}

	conv := FromTurns("c1", "Chat #1", turns)

	var roles []string
	for _, e := range conv.Entries {
		roles = append(roles, e.Role)
	}
	assert.Equal(t, []string{RoleUser, RoleAssistant, RoleSources, RoleUser, RoleAssistant}, roles)
	assert.Equal(t, "first", conv.Entries[0].Content)
	require.Len(t, conv.Entries[2].Sources, 1)
	assert.Equal(t, []string{"a", "b"}, conv.Entries[2].Sources[0].Excerpts)
}

func TestFromTranscriptSkipsPlaceholders(t *testing.T) {
	tr := transcript.New()
	tr.AppendUser("hello")
	tr.ShowPlaceholder("Thinking")
	tr.BeginResponse()
	tr.AppendToken("   ")

	conv := FromTranscript("c1", "Chat #1", tr.Blocks())

	require.Len(t, conv.Entries, 1)
	assert.Equal(t, RoleUser, conv.Entries[0].Role)
}

func TestExportRejectsEmptyConversation(t *testing.T) {
	for _, format := range Formats {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err)

		_, err = exp.Export(&Conversation{Title: "empty"})
		assert.Error(t, err, format)

		_, err = exp.Export(nil)
		assert.Error(t, err, format)
	}
}

func TestForFormat(t *testing.T) {
	cases := map[string]string{
		"md":       ".md",
		"markdown": ".md",
		"HTML":     ".html",
		"json":     ".json",
	}
	for format, ext := range cases {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, exp.FileExtension(), format)
	}

	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestHTMLEscapesEverything(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, page, "q3&lt;draft&gt;.pdf")
	assert.Contains(t, page, "up 12% &amp; rising")
	assert.Contains(t, page, "<div class=\"code-lang\">go</div>")
	assert.Contains(t, page, "fmt.Println(&#34;&lt;b&gt;&#34;)")
	assert.Contains(t, page, "class=\"dark-theme\"")
}

func TestHTMLLightTheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.Contains(t, string(out), "class=\"light-theme\"")
}

func TestMarkdownExport(t *testing.T) {
	conv := sampleConversation()
	conv.Title = "line one\nline: two"

	out, err := NewMarkdownExporter(nil).Export(conv)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "title: \"line one\\nline: two\"\n")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "\\<script\\>")
	assert.Contains(t, md, "```go\n")
	assert.Contains(t, md, "> up 12% & rising")
}

func TestMarkdownWithoutMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Quarterly report"))
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleConversation())
	require.NoError(t, err)

	var decoded Conversation
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "c1", decoded.ChatID)
	require.Len(t, decoded.Entries, 3)
	assert.Equal(t, "finance", decoded.Entries[2].Sources[0].Folder)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	conv := sampleConversation()
	conv.Title = "a/b: c"

	path, err := ToFile(conv, NewJSONExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a-b-_c_20250314_093000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "chat", sanitizeFilename(""))
	assert.Equal(t, "Chat_-1", sanitizeFilename("Chat #1"))
	assert.Equal(t, "x-y", sanitizeFilename("x|y"))
}
