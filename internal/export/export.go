// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/transcript"
	"github.com/jeranaias/scholar-tui/internal/util"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSources   = "sources"
	RoleInterrupt = "interrupt"
)

// Conversation is the exportable form of a chat.
type Conversation struct {
	ChatID     string    `json:"chat_id"`
	Title      string    `json:"title"`
	ExportedAt time.Time `json:"exported_at"`
	Entries    []Entry   `json:"entries"`
}

// Entry is one transcript element.
type Entry struct {
	Role    string   `json:"role"`
	Content string   `json:"content,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// Source is one cited document with its retrieved excerpts.
type Source struct {
	FileID   string   `json:"file_id"`
	FileName string   `json:"file_name"`
	Folder   string   `json:"folder,omitempty"`
	Excerpts []string `json:"excerpts"`
}

// FromTranscript converts displayed blocks. Placeholders and empty lines
// are skipped.
func FromTranscript(chatID, title string, blocks []transcript.Block) *Conversation {
	conv := &Conversation{ChatID: chatID, Title: title, ExportedAt: time.Now()}
	for _, b := range blocks {
		switch b.Kind {
		case transcript.KindUser:
			conv.add(Entry{Role: RoleUser, Content: b.Text})
		case transcript.KindAssistant:
			conv.add(Entry{Role: RoleAssistant, Content: b.Text})
		case transcript.KindTool:
			conv.add(Entry{Role: RoleTool, Content: b.Text})
		case transcript.KindInterrupt:
			if b.Interrupt != nil {
				conv.add(Entry{Role: RoleInterrupt, Content: b.Interrupt.Prompt()})
			}
		case transcript.KindDocuments:
			sources := make([]Source, 0, len(b.Cards))
			for _, c := range b.Cards {
				sources = append(sources, Source{
					FileID:   c.FileID,
					FileName: c.FileName,
					Folder:   c.Folder,
					Excerpts: c.Lines,
				})
			}
			if len(sources) > 0 {
				conv.Entries = append(conv.Entries, Entry{Role: RoleSources, Sources: sources})
			}
		}
	}
	return conv
}

// FromTurns converts a chat history as returned by the service, newest
// first.
func FromTurns(chatID, title string, turns []api.Turn) *Conversation {
	t := transcript.New()
	t.LoadHistory(turns)
	return FromTranscript(chatID, title, t.Blocks())
}

func (c *Conversation) add(e Entry) {
	if strings.TrimSpace(e.Content) == "" {
		return
	}
	c.Entries = append(c.Entries, e)
}

func (c *Conversation) validate() error {
	if c == nil {
		return fmt.Errorf("conversation is nil")
	}
	if len(c.Entries) == 0 {
		return fmt.Errorf("conversation has no messages")
	}
	return nil
}

// =============================================================================
// EXPORTER
// =============================================================================

// Exporter renders a conversation in one format.
type Exporter interface {
	Export(conv *Conversation) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds the chat id and export time.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark"). Default: "dark".
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// Formats lists the accepted format names.
var Formats = []string{"md", "html", "json"}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ToFile exports conv with exporter into opts.OutputDir and returns the
// written path.
func ToFile(conv *Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s",
		sanitizeFilename(conv.Title),
		conv.ExportedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|#`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func roleLabel(role string) string {
	switch role {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleTool:
		return "Tool"
	case RoleSources:
		return "Sources"
	case RoleInterrupt:
		return "Action required"
	default:
		return "Unknown"
	}
}
