// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package styles provides the visual styling system for the agribot TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Leaf - Primary accent, assistant messages, brand color
var Leaf = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}

// LeafDeep - Darker green for backgrounds
var LeafDeep = lipgloss.AdaptiveColor{Light: "#166534", Dark: "#14532D"}

// Sky - User messages, links, info
var Sky = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"}

// SkyDeep - Darker sky for backgrounds
var SkyDeep = lipgloss.AdaptiveColor{Light: "#075985", Dark: "#0C4A6E"}

// Wheat - Warnings, pending fact checks, progress
var Wheat = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, flagged answers
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Emerald - Approved fact checks, success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1A1E1B"}

// SurfaceDim - Slightly darker/lighter surface for headers and footers
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F4", Dark: "#151915"}

// TextPrimary - Main text color
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#E7E5E4"}

// TextMuted - Timestamps, metadata, help text
var TextMuted = lipgloss.AdaptiveColor{Light: "#78716C", Dark: "#A8A29E"}
