// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colors and lipgloss styles of the terminal UI.
//
// Colors are lipgloss.AdaptiveColor values, so they follow the terminal
// background. NewTheme detects the color profile with termenv; the "dark"
// and "light" theme names force the background instead of detecting it.
//
// Usage:
//
//	theme := styles.NewTheme("auto")
//	line := theme.UserBlock.Render("hello")
package styles
