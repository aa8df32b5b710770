// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastManagerExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewToastManager(3 * time.Second)
	m.now = func() time.Time { return now }

	m.AddSuccess("File deleted successfully")
	m.AddError("Upload failed.")
	require.Len(t, m.GetToasts(), 2)
	assert.Equal(t, "Upload failed.", m.GetToasts()[0].Message, "newest first")

	now = now.Add(4 * time.Second)
	remaining := m.TickToasts()
	require.Len(t, remaining, 1)
	assert.Equal(t, ToastKindError, remaining[0].Kind, "errors stay longer")

	now = now.Add(3 * time.Second)
	assert.Empty(t, m.TickToasts())
	assert.False(t, m.HasToasts())
}

func TestToastManagerCapAndDismiss(t *testing.T) {
	m := NewToastManager(0)
	for i := 0; i < 7; i++ {
		m.AddStatus("note")
	}
	assert.Len(t, m.GetToasts(), 5)

	m.Dismiss()
	assert.Len(t, m.GetToasts(), 4)
}

func TestRenderToast(t *testing.T) {
	toast := Toast{Message: "Upload successful!", Kind: ToastKindSuccess, Duration: time.Second}
	out := RenderToast(toast, 80, time.Now())
	assert.Contains(t, out, "[OK]")
	assert.Contains(t, out, "Upload successful!")
}

func TestWrapToastText(t *testing.T) {
	out := wrapToastText("one two three four", 9)
	assert.Equal(t, "one two\nthree\nfour", out)
	assert.Equal(t, "", wrapToastText("", 10))
	assert.False(t, strings.Contains(wrapToastText("a b", 0), "\n"))
}
