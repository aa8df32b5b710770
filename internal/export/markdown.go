// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown. Assistant text is already
// Markdown and is written as is; everything else is escaped.
func (e *MarkdownExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(conv.Title)))
		sb.WriteString(fmt.Sprintf("chat_id: %s\n", escapeYAML(conv.ChatID)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", conv.ExportedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("entries: %d\n", len(conv.Entries)))
		sb.WriteString("generator: scholar\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.Title)))

	for i, entry := range conv.Entries {
		sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel(entry.Role)))

		switch entry.Role {
		case RoleAssistant:
			sb.WriteString(strings.TrimSpace(entry.Content))
		case RoleTool, RoleInterrupt:
			sb.WriteString("_" + escapeMarkdown(strings.TrimSpace(entry.Content)) + "_")
		case RoleSources:
			sb.WriteString(e.formatSources(entry.Sources))
		default:
			sb.WriteString(escapeMarkdown(strings.TrimSpace(entry.Content)))
		}
		sb.WriteString("\n\n")

		if i < len(conv.Entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from scholar on %s*\n", conv.ExportedAt.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

func (e *MarkdownExporter) formatSources(sources []Source) string {
	var sb strings.Builder
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("**%s**", escapeMarkdown(src.FileName)))
		if src.Folder != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", escapeMarkdown(src.Folder)))
		}
		for _, ex := range src.Excerpts {
			sb.WriteString("\n\n> ")
			sb.WriteString(strings.ReplaceAll(escapeMarkdown(strings.TrimSpace(ex)), "\n", "\n> "))
		}
	}
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would change Markdown structure.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	for _, c := range []string{"#", "*", "_", "[", "]", "`", "<", ">"} {
		s = strings.ReplaceAll(s, c, "\\"+c)
	}
	return s
}

// escapeYAML quotes a frontmatter value when it holds special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
