// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// ErrStreamBusy is returned by Start while another stream is live. The UI
// disables input during streaming, so a busy Start is a programming error
// surfaced deterministically rather than an implicit supersession.
var ErrStreamBusy = errors.New("a stream is already active for this session")

// DefaultIdleTimeout bounds the gap between events before the watchdog
// declares the stream dead. Zero disables the watchdog.
const DefaultIdleTimeout = 2 * time.Minute

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle means no stream has run yet, or the last one was stopped.
	StateIdle State = iota
	// StateStreaming means a stream is live; Start is rejected.
	StateStreaming
	// StateTerminal means the last stream ended with completion or error.
	StateTerminal
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Session owns the lifecycle of one in-flight query: it opens a transport,
// folds the inbound events into a ViewModel, and reports every fold through
// the OnUpdate callback.
//
// At most one stream is live per Session. Events are folded strictly in
// arrival order; there is no reordering buffer.
type Session struct {
	mu       sync.Mutex
	state    State
	vm       ViewModel
	cancel   context.CancelFunc
	watchdog *time.Timer
	seen     bool
	gen      int

	transport   Transport
	fallback    Transport
	idleTimeout time.Duration
	onUpdate    func(ViewModel)
	logger      *log.Logger
}

// NewSession creates a session over the given transport.
func NewSession(transport Transport) *Session {
	return &Session{
		transport:   transport,
		idleTimeout: DefaultIdleTimeout,
		logger:      log.New(io.Discard, "", 0),
	}
}

// WithFallback sets the transport used when the primary one fails before
// delivering any event.
func (s *Session) WithFallback(t Transport) *Session {
	s.fallback = t
	return s
}

// WithIdleTimeout sets the watchdog bound. Zero disables it.
func (s *Session) WithIdleTimeout(d time.Duration) *Session {
	s.idleTimeout = d
	return s
}

// WithLogger sets the diagnostic logger.
func (s *Session) WithLogger(l *log.Logger) *Session {
	if l != nil {
		s.logger = l
	}
	return s
}

// OnUpdate registers the view-model callback. It is invoked after every fold,
// from the streaming goroutine; implementations must be safe to call off the
// UI thread (tea.Program.Send is).
func (s *Session) OnUpdate(fn func(ViewModel)) *Session {
	s.onUpdate = fn
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ViewModel returns a snapshot of the current projection.
func (s *Session) ViewModel() ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vm
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start begins streaming one query. It rejects with ErrStreamBusy while a
// stream is live, and fully resets the view model before the first event.
func (s *Session) Start(ctx context.Context, req Request) error {
	s.mu.Lock()
	if s.state == StateStreaming {
		s.mu.Unlock()
		return ErrStreamBusy
	}

	s.gen++
	gen := s.gen
	s.vm = NewViewModel()
	s.state = StateStreaming
	s.seen = false

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.idleTimeout > 0 {
		s.watchdog = time.AfterFunc(s.idleTimeout, func() { s.fireWatchdog(gen) })
	}
	snapshot := s.vm
	s.mu.Unlock()

	s.notify(snapshot)
	go s.run(runCtx, req, gen)
	return nil
}

// Stop tears down the transport unconditionally and forces IsStreaming off.
// Partially applied view-model state is kept (the partial answer stays
// visible). Calling Stop when no stream is active is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	s.vm.IsStreaming = false
	s.state = StateIdle
	snapshot := s.vm
	s.mu.Unlock()

	s.logger.Printf("stream stopped by caller")
	s.notify(snapshot)
}

// =============================================================================
// STREAM EXECUTION
// =============================================================================

func (s *Session) run(ctx context.Context, req Request, gen int) {
	emit := func(ev Event) { s.apply(gen, ev) }

	err := s.transport.Stream(ctx, req, emit)
	if err != nil && ctx.Err() == nil && s.fallback != nil && !s.eventSeen(gen) {
		// Real-time delivery could not be established; degrade to simulated
		// streaming over the synchronous result.
		s.logger.Printf("push transport failed before first event, using fallback: %v", err)
		err = s.fallback.Stream(ctx, req, emit)
	}
	s.finish(gen, ctx, err)
}

// apply folds one event, in arrival order, under the session lock.
func (s *Session) apply(gen int, ev Event) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateStreaming {
		// A stopped or superseded stream must not fold into the live one.
		s.mu.Unlock()
		return
	}
	s.seen = true
	if s.watchdog != nil {
		s.watchdog.Reset(s.idleTimeout)
	}

	s.vm = Fold(s.vm, ev)
	if s.vm.Terminal {
		s.state = StateTerminal
		if s.watchdog != nil {
			s.watchdog.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
	}
	snapshot := s.vm
	s.mu.Unlock()

	s.notify(snapshot)
}

// finish reconciles the transport's exit with the fold state.
func (s *Session) finish(gen int, ctx context.Context, err error) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
	}

	var message string
	switch {
	case err == nil:
		// Server closed without a terminal event.
		message = "connection closed before completion"
	case ctx.Err() != nil:
		// Stop() raced the transport; Stop already settled the state.
		s.mu.Unlock()
		return
	default:
		message = err.Error()
	}

	s.vm = Fold(s.vm, &ErrorEvent{Message: message})
	s.state = StateTerminal
	snapshot := s.vm
	s.mu.Unlock()

	s.logger.Printf("stream ended with error: %s", message)
	s.notify(snapshot)
}

// fireWatchdog forces a terminal error when no event arrives in the bound.
func (s *Session) fireWatchdog(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	message := fmt.Sprintf("no response from server within %s", s.idleTimeout)
	s.vm = Fold(s.vm, &ErrorEvent{Message: message})
	s.state = StateTerminal
	if s.cancel != nil {
		s.cancel()
	}
	snapshot := s.vm
	s.mu.Unlock()

	s.logger.Printf("stream idle watchdog fired after %s", s.idleTimeout)
	s.notify(snapshot)
}

func (s *Session) eventSeen(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && s.seen
}

func (s *Session) notify(vm ViewModel) {
	if s.onUpdate != nil {
		s.onUpdate(vm)
	}
}
