// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package styles defines the adaptive color palette and Lip Gloss styles
// shared by the agribot TUI views.
package styles
