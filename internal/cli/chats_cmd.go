// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats_cmd.go - The 'chats' command: the local chat list.

package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/registry"
)

// HandleChats handles "chats list|new|use|rm".
func HandleChats(ctx context.Context, env *Env) error {
	switch env.Args.Subcommand {
	case "new":
		return chatsNew(ctx, env)
	case "use":
		return chatsUse(env)
	case "rm", "delete":
		return chatsRemove(ctx, env)
	default:
		return chatsList(env)
	}
}

func chatsList(env *Env) error {
	reg := env.App.Registry
	ids := reg.List()
	active, _ := reg.Active()

	if env.Args.JSON {
		data := ChatListData{Active: active, Chats: make([]ChatEntry, 0, len(ids))}
		for i, id := range ids {
			data.Chats = append(data.Chats, ChatEntry{Number: i + 1, ID: id, Active: id == active})
		}
		return NewJSONResponse("chats list", data).Write(env.Out)
	}

	if len(ids) == 0 {
		env.info("No chats yet. Run 'scholar chats new' or 'scholar chat'.")
		return nil
	}
	for i, id := range ids {
		mark := " "
		if id == active {
			mark = "*"
		}
		line := fmt.Sprintf("%s #%-3d %s", mark, i+1, id)
		if id == active {
			line = TitleStyle.Render(line)
		}
		fmt.Fprintln(env.Out, line)
	}
	return nil
}

func chatsNew(ctx context.Context, env *Env) error {
	id, err := newChat(ctx, env)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, id)
	return nil
}

// newChat asks the service for a chat id and makes it the active chat.
func newChat(ctx context.Context, env *Env) (string, error) {
	id, err := env.App.Client.NewChatID(ctx)
	if err != nil {
		return "", NewCommandError("chats", "new", api.UserMessage(err, "could not start a new chat"), err)
	}
	if err := activateChat(env.App.Registry, id); err != nil {
		return "", err
	}
	return id, nil
}

func chatsUse(env *Env) error {
	id := resolveChat(env.App.Registry, env.Args.Target)
	if err := activateChat(env.App.Registry, id); err != nil {
		return err
	}
	env.info("Active chat: %s", id)
	return nil
}

func chatsRemove(ctx context.Context, env *Env) error {
	reg := env.App.Registry
	id := resolveChat(reg, env.Args.Target)

	if !env.confirm(fmt.Sprintf("Delete chat %s?", id)) {
		return errDeclined("scholar chats rm " + env.Args.Target)
	}
	if err := env.App.Client.DeleteChat(ctx, id); err != nil {
		return NewCommandError("chats", "rm", api.UserMessage(err, "could not delete the chat"), err)
	}

	wasActive := false
	if active, ok := reg.Active(); ok && active == id {
		wasActive = true
	}
	if _, err := reg.Remove(id); err != nil {
		return fmt.Errorf("failed to update chat list: %w", err)
	}

	fmt.Fprintln(env.Out, SuccessStyle.Render("Chat deleted"))
	if next, ok := reg.Active(); ok && wasActive {
		env.info("Active chat: %s", next)
	}
	return nil
}

// activateChat makes id the active chat, adding it to the list when it is
// not there yet. Listed chats keep their position.
func activateChat(reg *registry.Registry, id string) error {
	if !slices.Contains(reg.List(), id) {
		if _, err := reg.AddOrTouch(id); err != nil {
			return fmt.Errorf("failed to update chat list: %w", err)
		}
	}
	if err := reg.SetActive(id); err != nil {
		return fmt.Errorf("failed to set active chat: %w", err)
	}
	return nil
}

// resolveChat maps a list number ("2" or "#2") to its chat id. Anything
// else is taken as an id.
func resolveChat(reg *registry.Registry, ref string) string {
	num := ref
	if len(num) > 1 && num[0] == '#' {
		num = num[1:]
	}
	if n, err := strconv.Atoi(num); err == nil {
		if ids := reg.List(); n >= 1 && n <= len(ids) {
			return ids[n-1]
		}
	}
	return ref
}
