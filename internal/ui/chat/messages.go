// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package chat

import (
	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamUpdateMsg carries a fresh view model snapshot from the streaming
// session.
type StreamUpdateMsg struct {
	VM stream.ViewModel
}

// StreamStartedMsg reports whether the stream could be opened. Err is
// ErrStreamBusy when a previous query is still running.
type StreamStartedMsg struct {
	Err error
}

// TranscriptRefreshedMsg reports the post-stream authoritative refresh.
type TranscriptRefreshedMsg struct {
	Err error
}

// =============================================================================
// STORE MESSAGES
// =============================================================================

// SessionsLoadedMsg reports the initial session list load.
type SessionsLoadedMsg struct {
	Sessions []api.ChatSession
	Err      error
}

// SessionSelectedMsg reports a transcript load after picking a session.
type SessionSelectedMsg struct {
	Err error
}

// SendFailedMsg reports a failed optimistic send; the store has already
// rolled the echo back.
type SendFailedMsg struct {
	Err error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ErrorClearMsg auto-dismisses the error banner.
type ErrorClearMsg struct{}
