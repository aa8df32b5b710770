// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Supported Formats
//
//   - Markdown: readable transcript with sources as quoted excerpts
//   - HTML: standalone page with embedded CSS; all text is escaped
//   - JSON: the Conversation structure
//
// # Usage
//
//	conv := export.FromTurns(chatID, "Chat #3", turns)
//	exporter, err := export.ForFormat("html", opts)
//	path, err := export.ToFile(conv, exporter, opts)
package export
