// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	core "github.com/jeranaias/scholar-tui/internal/chat"
	"github.com/jeranaias/scholar-tui/internal/export"
	"github.com/jeranaias/scholar-tui/internal/transcript"
)

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// run turns session commands into tea commands. Their results return to
// Update as sessionEventMsg.
func (m Model) run(cmds []core.Command) tea.Cmd {
	if len(cmds) == 0 {
		return nil
	}
	ctx := m.ctx
	batch := make([]tea.Cmd, 0, len(cmds))
	for _, c := range cmds {
		c := c
		batch = append(batch, func() tea.Msg {
			if ev := c(ctx); ev != nil {
				return sessionEventMsg{event: ev}
			}
			return nil
		})
	}
	return tea.Batch(batch...)
}

// =============================================================================
// CHAT LIST COMMANDS
// =============================================================================

func (m Model) newChatCmd() tea.Cmd {
	ctx, client := m.ctx, m.app.Client
	return func() tea.Msg {
		id, err := client.NewChatID(ctx)
		return newChatMsg{id: id, err: err}
	}
}

func (m Model) deleteChatCmd(id string) tea.Cmd {
	ctx, client := m.ctx, m.app.Client
	return func() tea.Msg {
		return chatDeletedMsg{id: id, err: client.DeleteChat(ctx, id)}
	}
}

// waitForRegistry blocks until the chat list file changes.
func waitForRegistry(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return registryChangedMsg{}
	}
}

// =============================================================================
// METADATA AND EXPORT
// =============================================================================

func (m Model) loadMetadataCmd() tea.Cmd {
	ctx, meta := m.ctx, m.app.Meta
	return func() tea.Msg {
		cats, err := meta.Categories(ctx)
		return metadataMsg{categories: cats, err: err}
	}
}

func exportCmd(chatID, title string, blocks []transcript.Block, dir string) tea.Cmd {
	return func() tea.Msg {
		opts := export.DefaultOptions()
		opts.OutputDir = dir
		conv := export.FromTranscript(chatID, title, blocks)
		path, err := export.ToFile(conv, export.NewMarkdownExporter(opts), opts)
		return exportedMsg{path: path, err: err}
	}
}

func (m Model) downloadCmd(fileID string) tea.Cmd {
	ctx, docs, dir := m.ctx, m.docs, m.exportDir
	return func() tea.Msg {
		path, err := docs.Download(ctx, fileID, dir)
		return downloadedMsg{path: path, err: err}
	}
}
