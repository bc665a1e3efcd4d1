// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akshat-jwr/agribot-tui/internal/stream"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// sender is the slice of *tea.Program the runner needs.
type sender interface {
	Send(tea.Msg)
}

// StreamRunner bridges the streaming session's update callback onto the
// Bubble Tea loop. The session invokes the callback from its own
// goroutine; Send is safe for concurrent use, so each snapshot becomes a
// StreamUpdateMsg processed in order on the main loop.
type StreamRunner struct {
	session *stream.Session

	mu      sync.Mutex
	program sender
}

// NewStreamRunner wires a session to a program. Call Attach after the
// program exists; Bubble Tea needs the model before the program, so the
// runner is created unattached.
func NewStreamRunner(session *stream.Session) *StreamRunner {
	r := &StreamRunner{session: session}
	session.OnUpdate(func(vm stream.ViewModel) {
		r.mu.Lock()
		p := r.program
		r.mu.Unlock()
		if p != nil {
			p.Send(StreamUpdateMsg{VM: vm})
		}
	})
	return r
}

// Attach sets the destination program. Must be called before the first
// Start; snapshots emitted while unattached are dropped.
func (r *StreamRunner) Attach(p sender) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Session returns the wrapped streaming session.
func (r *StreamRunner) Session() *stream.Session {
	return r.session
}
