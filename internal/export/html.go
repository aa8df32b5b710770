// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page. Every piece
// of chat text, including retrieved excerpts, is HTML-escaped.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"scholar\">\n")
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		sb.WriteString(fmt.Sprintf("                <span><strong>Chat:</strong> %s</span>\n", html.EscapeString(conv.ChatID)))
		sb.WriteString(fmt.Sprintf("                <span><strong>Exported:</strong> %s</span>\n", formatTimestamp(conv.ExportedAt)))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, entry := range conv.Entries {
		sb.WriteString(e.renderEntry(entry))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>scholar</strong> on %s</p>\n",
		conv.ExportedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderEntry(entry Entry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", entry.Role))
	sb.WriteString(fmt.Sprintf("                <div class=\"role-label\">%s</div>\n", roleLabel(entry.Role)))
	sb.WriteString("                <div class=\"message-content\">\n")
	if entry.Role == RoleSources {
		sb.WriteString(renderSources(entry.Sources))
	} else {
		sb.WriteString(formatContent(entry.Content))
	}
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </div>\n")
	return sb.String()
}

func renderSources(sources []Source) string {
	var sb strings.Builder
	for _, src := range sources {
		sb.WriteString("<div class=\"source\">\n")
		sb.WriteString(fmt.Sprintf("<div class=\"source-name\">%s", html.EscapeString(src.FileName)))
		if src.Folder != "" {
			sb.WriteString(fmt.Sprintf(" <span class=\"source-folder\">%s</span>", html.EscapeString(src.Folder)))
		}
		sb.WriteString("</div>\n")
		for _, ex := range src.Excerpts {
			sb.WriteString(fmt.Sprintf("<blockquote>%s</blockquote>\n", html.EscapeString(ex)))
		}
		sb.WriteString("</div>\n")
	}
	return sb.String()
}

// formatContent escapes content and then turns fenced and inline code into
// markup. Paragraphs are split on blank lines.
func formatContent(content string) string {
	content = html.EscapeString(strings.TrimSpace(content))

	var blocks []string
	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		label := ""
		if parts[1] != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", parts[1])
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code>%s</code></pre></div>",
			label, strings.TrimRight(parts[2], "\n")))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})
	content = inlineCodeRegex.ReplaceAllString(content, "<code class=\"inline-code\">$1</code>")

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "\x00") && strings.HasSuffix(para, "\x00") {
			var i int
			if _, err := fmt.Sscanf(strings.Trim(para, "\x00"), "%d", &i); err == nil && i < len(blocks) {
				out = append(out, blocks[i])
				continue
			}
		}
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>")+"</p>")
	}
	result := strings.Join(out, "\n")

	// Code blocks sharing a paragraph with text.
	for i, b := range blocks {
		result = strings.ReplaceAll(result, fmt.Sprintf("\x00%d\x00", i), b)
	}
	return result
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        .dark-theme {
            --bg: #1a1b26; --panel: #24283b; --muted-bg: #414868;
            --text: #c0caf5; --muted: #565f89;
            --user: #7aa2f7; --assistant: #9ece6a; --tool: #bb9af7; --sources: #e0af68; --interrupt: #f7768e;
        }
        .light-theme {
            --bg: #ffffff; --panel: #f7f8fa; --muted-bg: #e1e4e8;
            --text: #24292e; --muted: #6a737d;
            --user: #0366d6; --assistant: #22863a; --tool: #6f42c1; --sources: #b08800; --interrupt: #d73a49;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--muted-bg); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--muted); }
        .conversation { padding: 24px 32px; }

        .message { margin-bottom: 20px; padding: 16px 20px; border-radius: 8px; border-left: 4px solid transparent; }
        .user-message { border-left-color: var(--user); }
        .assistant-message { border-left-color: var(--assistant); }
        .tool-message { border-left-color: var(--tool); font-style: italic; }
        .sources-message { border-left-color: var(--sources); }
        .interrupt-message { border-left-color: var(--interrupt); }
        .role-label { font-weight: 600; font-size: 14px; margin-bottom: 8px; }
        .message-content p { margin-bottom: 10px; }

        .source { margin-bottom: 12px; }
        .source-name { font-weight: 600; }
        .source-folder { color: var(--muted); font-weight: normal; }
        blockquote { margin: 6px 0 0 12px; padding-left: 10px; border-left: 2px solid var(--muted-bg); color: var(--muted); }

        .code-block { margin: 12px 0; border: 1px solid var(--muted-bg); border-radius: 8px; overflow: hidden; }
        .code-lang { padding: 6px 12px; background: var(--muted-bg); font-size: 12px; text-transform: uppercase; }
        .code-block pre { padding: 12px; overflow-x: auto; }
        code { font-family: "SF Mono", Monaco, "Fira Code", monospace; font-size: 14px; }
        .inline-code { padding: 1px 5px; border: 1px solid var(--muted-bg); border-radius: 4px; }

        .footer { padding: 16px 32px; text-align: center; font-size: 13px; color: var(--muted); }

        @media print {
            body { padding: 0; }
            .message { page-break-inside: avoid; }
        }
    </style>
`
