// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - The 'export' command.

package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/export"
)

// HandleExport writes a chat's history to a file. The chat is the target
// argument or the active chat.
func HandleExport(ctx context.Context, env *Env) error {
	reg := env.App.Registry

	id := env.Args.Target
	if id != "" {
		id = resolveChat(reg, id)
	} else {
		active, ok := reg.Active()
		if !ok {
			return NewUsageError("no active chat; pass a chat id or number")
		}
		id = active
	}

	turns, err := env.App.Client.ChatHistory(ctx, id)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			return &NotFoundError{Resource: "chat", ID: id}
		}
		return NewCommandError("export", "history", api.UserMessage(err, "could not load the chat history"), err)
	}

	opts := export.DefaultOptions()
	opts.OutputDir = env.Args.Out
	exporter, err := export.ForFormat(env.Args.Format, opts)
	if err != nil {
		return NewUsageError(err.Error())
	}

	conv := export.FromTurns(id, chatLabel(reg, id), turns)
	path, err := export.ToFile(conv, exporter, opts)
	if err != nil {
		return NewCommandError("export", "write", "", err)
	}

	if env.Args.JSON {
		return NewJSONResponse("export", map[string]any{
			"chat_id": id,
			"format":  env.Args.Format,
			"path":    path,
		}).Write(env.Out)
	}
	fmt.Fprintln(env.Out, path)
	return nil
}
