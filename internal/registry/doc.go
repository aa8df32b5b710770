// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry keeps the local list of known chat ids and the active one.
//
// The list is ordered oldest first, holds at most MaxChats entries and never
// contains duplicates. Touching an id moves it to the end; overflow evicts
// from the front. Everything is persisted through a small key-value Store so
// the list survives restarts and is shared between terminals.
//
// # Backends
//
//   - FileStore: a JSON object file written atomically, watchable with fsnotify
//   - SQLiteStore: a single kv table in a SQLite database
//   - MemoryStore: in-process map, for tests
//
// # Usage
//
//	store, err := registry.OpenStore(cfg.Registry)
//	reg := registry.New(store, logger)
//	ids, err := reg.AddOrTouch(chatID)
package registry
