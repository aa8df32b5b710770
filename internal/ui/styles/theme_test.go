// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThemeForcedBackground(t *testing.T) {
	assert.True(t, NewTheme("dark").IsDark)
	assert.False(t, NewTheme("light").IsDark)
}

func TestLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	cases := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, c := range cases {
		theme.SetSize(c.width, 30)
		assert.Equal(t, c.want, theme.GetLayoutMode(), "width %d", c.width)
	}
}

func TestGlamourStyle(t *testing.T) {
	theme := NewTheme("light")
	assert.Contains(t, []string{"light", "notty"}, theme.GlamourStyle())
}

func TestStatusRendering(t *testing.T) {
	assert.True(t, strings.Contains(RenderSuccess("saved"), "[OK] saved"))
	assert.True(t, strings.Contains(RenderError("failed"), "[X] failed"))
	assert.Equal(t, "[*]", Checkbox(true))
	assert.Equal(t, "[ ]", Checkbox(false))
}
