// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/scholar-tui/internal/api"
	"github.com/jeranaias/scholar-tui/internal/validate"
)

type recipientForm struct {
	Name  string `validate:"required,max=200" label:"Recipient name"`
	Email string `validate:"required,email,max=320" label:"Email address"`
}

// RecipientPayload validates the recipient form and builds its resume body.
func RecipientPayload(name, email string) (api.RecipientInfo, error) {
	form := recipientForm{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := validate.Struct(form); err != nil {
		return api.RecipientInfo{}, err
	}
	return api.RecipientInfo{Name: form.Name, Email: form.Email}, nil
}

// CancelRecipient is sent when the recipient form is cancelled.
func CancelRecipient() api.RecipientInfo {
	return api.RecipientInfo{}
}

// ConfirmPayload answers a confirmation request.
func ConfirmPayload(confirmed bool) api.Confirmation {
	return api.Confirmation{Confirmed: confirmed}
}

// DismissPayload answers an interrupt this client cannot render.
func DismissPayload() api.Dismissal {
	return api.Dismissal{}
}
