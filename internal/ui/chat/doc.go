// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// The screen has three panes: the chat list sidebar, the transcript and the
// message input. It observes a chat.Session: key presses become session
// events, the session's commands run as tea.Cmds, and their results come
// back as sessionEventMsg values that are dispatched on the update loop.
//
// # Focus
//
// tab cycles between the input, the transcript and the sidebar. In the
// transcript, document cards can be selected with space to scope the next
// prompt; x clears the selection. When an interrupt is pending its form
// takes the focus until it is answered.
//
// # Key Bindings
//
//	enter      send message / answer form
//	alt+enter  newline
//	ctrl+n     new chat
//	ctrl+d     delete chat (sidebar)
//	ctrl+f     filter prompt scope
//	ctrl+e     export transcript
//	ctrl+o     documents screen
//	ctrl+c     quit
package chat
