// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// =============================================================================
// INTERACTIVE PROMPTS
// =============================================================================

// PromptLine reads one line of input with line editing. Returns
// liner.ErrPromptAborted on Ctrl+C.
func PromptLine(prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	input, err := line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptPassword reads a password from stdin without echoing.
func PromptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(passBytes)), nil
}
