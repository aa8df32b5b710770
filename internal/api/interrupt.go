// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
)

// Interrupt discriminators sent by the service.
const (
	InterruptRecipientInfo = "email_input_request"
	InterruptConfirmation  = "email_confirmation_request"
)

// Interrupt is a request for human input that pauses a chat. The set of
// implementations is closed; unknown discriminators decode to UnknownInterrupt.
type Interrupt interface {
	// Kind returns the wire discriminator.
	Kind() string
	// Prompt returns the text shown above the form.
	Prompt() string
	isInterrupt()
}

// RecipientInfoRequest asks for the name and email of a recipient.
type RecipientInfoRequest struct {
	Message    string
	NameLabel  string
	EmailLabel string
}

func (r RecipientInfoRequest) Kind() string   { return InterruptRecipientInfo }
func (r RecipientInfoRequest) Prompt() string { return r.Message }
func (RecipientInfoRequest) isInterrupt()     {}

// EmailPreview summarizes the message awaiting confirmation.
type EmailPreview struct {
	ToName      string `json:"to_name"`
	ToEmail     string `json:"to_email"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"body_preview"`
}

// ConfirmationRequest asks the user to approve or reject a pending action.
type ConfirmationRequest struct {
	Message string
	Preview EmailPreview
}

func (c ConfirmationRequest) Kind() string   { return InterruptConfirmation }
func (c ConfirmationRequest) Prompt() string { return c.Message }
func (ConfirmationRequest) isInterrupt()     {}

// UnknownInterrupt is an interrupt with a discriminator this client does not
// know. It can only be dismissed.
type UnknownInterrupt struct {
	Type    string
	Message string
	Raw     json.RawMessage
}

func (u UnknownInterrupt) Kind() string   { return u.Type }
func (u UnknownInterrupt) Prompt() string { return u.Message }
func (UnknownInterrupt) isInterrupt()     {}

// Default field labels used when the payload omits them.
const (
	DefaultNameLabel  = "Recipient name"
	DefaultEmailLabel = "Email address"
)

type interruptWire struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Fields  []struct {
		Name  string `json:"name"`
		Label string `json:"label"`
	} `json:"fields"`
	Preview *EmailPreview `json:"preview"`
}

// DecodeInterrupt decodes an interrupt value. Payloads that are not JSON
// objects decode to an UnknownInterrupt with an empty type.
func DecodeInterrupt(raw json.RawMessage) Interrupt {
	var w interruptWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return UnknownInterrupt{Raw: raw}
	}

	switch w.Type {
	case InterruptRecipientInfo:
		req := RecipientInfoRequest{
			Message:    w.Message,
			NameLabel:  DefaultNameLabel,
			EmailLabel: DefaultEmailLabel,
		}
		for _, f := range w.Fields {
			if f.Label == "" {
				continue
			}
			switch f.Name {
			case "name":
				req.NameLabel = f.Label
			case "email":
				req.EmailLabel = f.Label
			}
		}
		return req

	case InterruptConfirmation:
		req := ConfirmationRequest{Message: w.Message}
		if w.Preview != nil {
			req.Preview = *w.Preview
		}
		return req

	default:
		return UnknownInterrupt{Type: w.Type, Message: w.Message, Raw: raw}
	}
}

// =============================================================================
// RESUME PAYLOADS
// =============================================================================

// RecipientInfo resolves a RecipientInfoRequest. Cancel sends both fields empty.
type RecipientInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Confirmation resolves a ConfirmationRequest.
type Confirmation struct {
	Confirmed bool `json:"confirmed"`
}

// Dismissal resolves an UnknownInterrupt. It encodes as {}.
type Dismissal struct{}
