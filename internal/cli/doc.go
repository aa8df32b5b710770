// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the line-mode commands of
// scholar.
//
// Without a command scholar starts the terminal UI. The other commands work
// without a full-screen terminal and can be scripted.
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.ExitCode(err))
//	}
//	a, err := cli.NewApp(args, true)
//	...
//	err = cli.HandleDocs(ctx, cli.NewEnv(a, args))
//
// # Commands
//
//   - chat: line-mode chat with streaming answers and interrupt prompts
//   - chats: list, create, activate and delete local chats
//   - docs: list, show, download, upload and delete documents
//   - export: write a chat to Markdown, HTML or JSON
//   - config: show the effective configuration or its path
//
// List and show commands accept --json.
package cli
