// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/scholar-tui/internal/api"

// Effect is an output of Machine.Step. Effects must be applied in order.
type Effect interface {
	isEffect()
}

// NotifyLevel is the severity of a Notify effect.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifySuccess
	NotifyError
)

// =============================================================================
// RENDER EFFECTS
// =============================================================================

// AppendUser adds the user's prompt to the transcript.
type AppendUser struct{ Text string }

// ShowPlaceholder shows a transient status line, replacing any other.
type ShowPlaceholder struct{ Text string }

type RemovePlaceholder struct{}

// BeginResponse adds empty tool and assistant lines.
type BeginResponse struct{}

type AppendToken struct{ Text string }

type SetToolStatus struct{ Text string }

// DiscardResponse drops the in-progress tool and assistant lines.
type DiscardResponse struct{}

// FinishResponse marks the assistant text final.
type FinishResponse struct{}

type ShowInterrupt struct{ Interrupt api.Interrupt }

// DisableInterruptForm locks the interrupt form after it was answered.
type DisableInterruptForm struct{}

type RenderDocuments struct{ Fragments []api.Fragment }

type SetInputEnabled struct{ Enabled bool }

type Notify struct {
	Level NotifyLevel
	Text  string
}

type ResetTranscript struct{}

type RenderHistory struct{ Turns []api.Turn }

// ClearSelection empties the selected documents.
type ClearSelection struct{}

type LogWarning struct {
	Message string
	Err     error
}

// =============================================================================
// I/O EFFECTS
// =============================================================================

type LoadHistory struct {
	ChatID string
	Epoch  uint64
}

type CheckInterrupt struct {
	ChatID string
	Epoch  uint64
}

type PostPrompt struct {
	ChatID string
	Epoch  uint64
	Text   string
}

type OpenStream struct {
	ChatID string
	Epoch  uint64
	Gen    uint64
}

// AdoptStream takes ownership of the handle delivered by StreamOpened.
type AdoptStream struct{ Gen uint64 }

// ReadStream requests the next event. At most one read is outstanding.
type ReadStream struct{ Gen uint64 }

type CloseStream struct{ Gen uint64 }

type FetchCurrentState struct {
	ChatID string
	Epoch  uint64
	Prompt uint64
}

type PostResume struct {
	ChatID  string
	Epoch   uint64
	Payload any
}

func (AppendUser) isEffect()           {}
func (ShowPlaceholder) isEffect()      {}
func (RemovePlaceholder) isEffect()    {}
func (BeginResponse) isEffect()        {}
func (AppendToken) isEffect()          {}
func (SetToolStatus) isEffect()        {}
func (DiscardResponse) isEffect()      {}
func (FinishResponse) isEffect()       {}
func (ShowInterrupt) isEffect()        {}
func (DisableInterruptForm) isEffect() {}
func (RenderDocuments) isEffect()      {}
func (SetInputEnabled) isEffect()      {}
func (Notify) isEffect()               {}
func (ResetTranscript) isEffect()      {}
func (RenderHistory) isEffect()        {}
func (ClearSelection) isEffect()       {}
func (LogWarning) isEffect()           {}
func (LoadHistory) isEffect()          {}
func (CheckInterrupt) isEffect()       {}
func (PostPrompt) isEffect()           {}
func (OpenStream) isEffect()           {}
func (AdoptStream) isEffect()          {}
func (ReadStream) isEffect()           {}
func (CloseStream) isEffect()          {}
func (FetchCurrentState) isEffect()    {}
func (PostResume) isEffect()           {}
