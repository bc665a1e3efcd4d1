// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateDisplay truncates s to at most width terminal cells, appending an
// ellipsis when truncation happened. Uses display width rather than byte or
// rune length so CJK and emoji titles line up in the session list.
func TruncateDisplay(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// DeriveTitle builds a session title from the first user message, capped at
// maxWidth display cells. The backend does the same server-side when no title
// is supplied; this keeps optimistic UI state consistent with it.
func DeriveTitle(content string, maxWidth int) string {
	title := FirstLine(content)
	if title == "" {
		title = "New conversation"
	}
	return TruncateDisplay(title, maxWidth)
}
