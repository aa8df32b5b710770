// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives one chat conversation: prompt submission, response
// streaming, and interrupt resolution.
//
// The core is Machine, a pure state machine. Machine.Step takes an Event
// and returns the next Machine plus an ordered list of Effects. Render
// effects describe transcript mutations. I/O effects describe requests.
//
// Session executes effects. It applies render effects to a
// transcript.Transcript, owns the single open *api.Stream, and turns I/O
// effects into Commands. A Command runs off the UI loop and returns the
// Event that reports its result; the caller feeds that Event back through
// Session.Dispatch.
//
// Every stream is tagged with a generation and every chat activation bumps
// an epoch. Results tagged with a stale generation or epoch are dropped,
// so nothing from a closed stream or a previous chat reaches the transcript.
//
// Usage in a Bubble Tea model:
//
//	cmds := session.Activate(chatID)
//	return m, tea.Batch(wrap(cmds)...)
//
// and in a line REPL:
//
//	err := session.Run(ctx, session.Submit(line), printEvent)
package chat
