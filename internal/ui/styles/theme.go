// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER AND STATUS BAR
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageTime    lipgloss.Style
	PendingMark    lipgloss.Style

	// ==========================================================================
	// STREAMING PANEL
	// ==========================================================================

	PhaseTitle    lipgloss.Style
	ProgressDone  lipgloss.Style
	ProgressTodo  lipgloss.Style
	StepDone      lipgloss.Style
	StepActive    lipgloss.Style
	SearchQuery   lipgloss.Style
	SourceTitle   lipgloss.Style
	SourceSnippet lipgloss.Style

	// ==========================================================================
	// FACT CHECK BADGES
	// ==========================================================================

	FactApproved  lipgloss.Style
	FactCorrected lipgloss.Style
	FactFlagged   lipgloss.Style
	FactPending   lipgloss.Style

	// ==========================================================================
	// ERROR BANNER AND INPUT
	// ==========================================================================

	ErrorBanner lipgloss.Style
	InputPrompt lipgloss.Style
	HelpText    lipgloss.Style
	Spinner     lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Leaf)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextMuted).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Sky)
	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Sky)
	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Leaf)
	t.MessageTime = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.PendingMark = lipgloss.NewStyle().
		Foreground(Wheat)

	t.PhaseTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Wheat)
	t.ProgressDone = lipgloss.NewStyle().
		Foreground(Leaf)
	t.ProgressTodo = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.StepDone = lipgloss.NewStyle().
		Foreground(Emerald)
	t.StepActive = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SearchQuery = lipgloss.NewStyle().
		Italic(true).
		Foreground(Sky)
	t.SourceTitle = lipgloss.NewStyle().
		Foreground(Sky).
		Underline(true)
	t.SourceSnippet = lipgloss.NewStyle().
		Foreground(TextMuted)

	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.FactApproved = badge.Foreground(Surface).Background(Emerald)
	t.FactCorrected = badge.Foreground(Surface).Background(Wheat)
	t.FactFlagged = badge.Foreground(Surface).Background(Rose)
	t.FactPending = badge.Foreground(TextMuted).Background(SurfaceDim)

	t.ErrorBanner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Leaf)
	t.HelpText = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Wheat)
}
