// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package cli provides command-line parsing and the non-interactive
// command handlers for agribot. The default command starts the TUI;
// everything else (login, register, sessions, config, version) runs to
// completion and exits.
package cli
