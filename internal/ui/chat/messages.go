// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/scholar-tui/internal/api"
	core "github.com/jeranaias/scholar-tui/internal/chat"
)

// sessionEventMsg carries the result of a session command.
type sessionEventMsg struct {
	event core.Event
}

// newChatMsg reports a chat id created by the service.
type newChatMsg struct {
	id  string
	err error
}

// chatDeletedMsg reports a chat deletion.
type chatDeletedMsg struct {
	id  string
	err error
}

// registryChangedMsg is sent when another process changed the chat list.
type registryChangedMsg struct{}

// metadataMsg carries categories for the filter form.
type metadataMsg struct {
	categories []api.Category
	err        error
}

// exportedMsg reports a transcript export.
type exportedMsg struct {
	path string
	err  error
}

// downloadedMsg reports a card file download.
type downloadedMsg struct {
	path string
	err  error
}

// OpenDocumentsMsg asks the parent program to show the documents screen.
type OpenDocumentsMsg struct{}
