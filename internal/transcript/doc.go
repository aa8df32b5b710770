// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript is the display model of a chat: an ordered list of
// blocks (user and assistant messages, the tool status line, placeholders,
// interrupt forms and grouped document cards) plus the set of documents the
// user selected to scope the next prompt.
//
// It holds no rendering code. Terminal views and exporters read Blocks and
// draw them however they like.
package transcript
