// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation prompts for destructive commands.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PromptYesNo asks question on stderr and reads the answer from stdin.
// It returns false when stdin is not a terminal, so scripts must pass --yes.
func PromptYesNo(question string) bool {
	if !CanPrompt() {
		return false
	}

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return isYes(input)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// errDeclined is returned when a confirmation was declined.
func errDeclined(command string) error {
	if !CanPrompt() {
		return NewUsageError(fmt.Sprintf("confirmation required; run '%s --yes'", command))
	}
	return fmt.Errorf("cancelled")
}
