// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components shared by the chat and
document screens.

# Components

ToastManager (toast.go) - Auto-expiring notifications in the bottom-right
corner. Upload, delete and chat failures surface here.

Spinner (spinner.go) - Animated spinner for the "Thinking" and
"Processing..." placeholders.

Confirm (confirm.go) - Yes/no dialog guarding destructive actions.

StatusBar (statusbar.go) - Bottom bar with the current state and key hints.

# Usage

Components are value types updated from the parent model:

	m.toasts.AddError("Upload failed.")
	return m, m.toasts.TickCmd()
*/
package components
