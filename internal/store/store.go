// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/util"
)

// ErrNoActiveSession is returned by message operations when no session is
// selected.
var ErrNoActiveSession = errors.New("no active session selected")

// maxTitleWidth caps derived session titles.
const maxTitleWidth = 60

// Backend is the slice of the REST client the store depends on.
// *api.Client satisfies it; tests use a stub.
type Backend interface {
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.ChatSession, error)
	ListSessions(ctx context.Context, page api.Page) (*api.SessionList, error)
	UpdateSession(ctx context.Context, id string, patch api.UpdateSessionRequest) (*api.ChatSession, error)
	DeleteSession(ctx context.Context, id string) error
	ListMessages(ctx context.Context, sessionID string, page api.Page) ([]api.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID, content string) ([]api.ChatMessage, error)
}

// History mirrors confirmed server state into a local transcript cache
// and serves it back when the backend is unreachable. *history.Cache
// satisfies it. Mirroring is best effort; cache write failures never
// fail the operation that triggered them.
type History interface {
	PutSession(s api.ChatSession) error
	PutMessages(sessionID string, msgs []api.ChatMessage) error
	DeleteSession(sessionID string) error
	Sessions() ([]api.ChatSession, error)
	Messages(sessionID string) ([]api.ChatMessage, error)
}

// Message is a ChatMessage plus client-side optimistic bookkeeping.
type Message struct {
	api.ChatMessage

	// CorrelationID identifies an optimistic copy until the server round
	// trip confirms it. Empty for persisted messages.
	CorrelationID string

	// Pending is true while the message awaits server confirmation.
	Pending bool
}

// Store caches the session list and the active message list.
//
// External state is observable through Sessions, Current, Messages, Loading
// and Err; every mutating operation updates those and nothing else.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	history  History
	language string

	sessions []api.ChatSession
	current  *api.ChatSession
	messages []Message

	loading bool
	lastErr string
}

// New creates a store over the backend. language is the preference applied
// to sessions the store creates implicitly.
func New(backend Backend, language string) *Store {
	return &Store{backend: backend, language: language}
}

// WithHistory attaches a local transcript cache.
func (s *Store) WithHistory(h History) *Store {
	s.history = h
	return s
}

// =============================================================================
// OBSERVABLE STATE
// =============================================================================

// Sessions returns a copy of the cached session list, server order.
func (s *Store) Sessions() []api.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.ChatSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *api.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Messages returns a copy of the active message list.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the single error slot ("" when clear). Each failing operation
// overwrites it; ClearError or the UI's display timeout clears it.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError empties the error slot.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// LoadSessions replaces the cached list with the first page from the server.
// When the server is unreachable and a history cache is attached, the local
// copy is served instead; the error slot is still set so the UI can show
// that the list may be stale.
func (s *Store) LoadSessions(ctx context.Context) error {
	s.begin()
	list, err := s.backend.ListSessions(ctx, api.Page{})
	if err != nil {
		s.fail(err)
		if s.history != nil {
			if cached, cerr := s.history.Sessions(); cerr == nil && len(cached) > 0 {
				s.mu.Lock()
				s.sessions = cached
				s.mu.Unlock()
			}
		}
		return err
	}

	s.mu.Lock()
	s.sessions = list.Sessions
	s.loading = false
	s.mu.Unlock()

	s.mirrorSessions(list.Sessions)
	return nil
}

// CreateSession creates a session and prepends it to the cached list
// (the server lists newest first). It does not select the session.
func (s *Store) CreateSession(ctx context.Context, title, language string) (*api.ChatSession, error) {
	if language == "" {
		language = s.language
	}
	s.begin()
	session, err := s.backend.CreateSession(ctx, api.CreateSessionRequest{
		Title:              title,
		LanguagePreference: language,
	})
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.mu.Lock()
	s.sessions = append([]api.ChatSession{*session}, s.sessions...)
	s.loading = false
	s.mu.Unlock()

	s.mirrorSessions([]api.ChatSession{*session})
	return session, nil
}

// SelectSession makes id the active session and loads its messages. On
// failure the previously active session and message list stay as they were;
// there is no partial application.
func (s *Store) SelectSession(ctx context.Context, id string) error {
	s.begin()
	messages, err := s.backend.ListMessages(ctx, id, api.Page{})
	if err != nil {
		s.fail(err)
		if s.history != nil {
			if cached, cerr := s.history.Messages(id); cerr == nil {
				s.applySelection(id, cached)
			}
		}
		return err
	}

	s.applySelection(id, messages)
	s.mirrorMessages(id, messages)
	return nil
}

func (s *Store) applySelection(id string, messages []api.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.current = s.findSession(id)
	if s.current == nil {
		// Selected from outside the cached list (deep link); synthesize the
		// pointer so messages still render.
		s.current = &api.ChatSession{ID: id}
	}
	s.messages = wrapMessages(messages)
}

// ClearActive drops the active selection and message list so the next
// message starts a fresh conversation. Purely local; the server session
// is untouched.
func (s *Store) ClearActive() {
	s.mu.Lock()
	s.current = nil
	s.messages = nil
	s.mu.Unlock()
}

// EnsureSession returns the active session, creating and selecting one when
// none is active. The title is derived from the first message the way the
// backend does it.
func (s *Store) EnsureSession(ctx context.Context, firstMessage string) (*api.ChatSession, error) {
	if current := s.Current(); current != nil {
		return current, nil
	}

	session, err := s.CreateSession(ctx, util.DeriveTitle(firstMessage, maxTitleWidth), "")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = session
	s.messages = nil
	s.mu.Unlock()
	return session, nil
}

// UpdateSession patches a session and refreshes the cached copy.
func (s *Store) UpdateSession(ctx context.Context, id string, patch api.UpdateSessionRequest) error {
	s.begin()
	updated, err := s.backend.UpdateSession(ctx, id, patch)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.loading = false
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i] = *updated
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		c := *updated
		s.current = &c
	}
	s.mu.Unlock()

	s.mirrorSessions([]api.ChatSession{*updated})
	return nil
}

// DeleteSession removes a session. Deleting the active session clears the
// active pointer and message list; deleting any other session only removes
// it from the cached list.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.begin()
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.loading = false
	kept := s.sessions[:0]
	for _, session := range s.sessions {
		if session.ID != id {
			kept = append(kept, session)
		}
	}
	s.sessions = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.messages = nil
	}
	s.mu.Unlock()

	if s.history != nil {
		_ = s.history.DeleteSession(id)
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AddOptimisticUser appends a pending user echo to the active list and
// returns its correlation id for exact rollback.
func (s *Store) AddOptimisticUser(content string) string {
	correlationID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID := ""
	if s.current != nil {
		sessionID = s.current.ID
	}
	s.messages = append(s.messages, Message{
		ChatMessage: api.ChatMessage{
			SessionID: sessionID,
			Role:      api.RoleUser,
			Content:   content,
			CreatedAt: time.Now(),
		},
		CorrelationID: correlationID,
		Pending:       true,
	})
	return correlationID
}

// Rollback removes the optimistic message with the given correlation id.
// Unknown ids are a no-op (the message may have been confirmed already).
func (s *Store) Rollback(correlationID string) {
	if correlationID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, message := range s.messages {
		if message.CorrelationID != correlationID {
			kept = append(kept, message)
		}
	}
	s.messages = kept
}

// SendMessage posts content to the active session through the blocking
// endpoint, with an optimistic echo rolled back on failure. The assistant
// turn failing removes the user echo too: the pair is transactional from
// the store's point of view.
func (s *Store) SendMessage(ctx context.Context, content string) ([]api.ChatMessage, error) {
	current := s.Current()
	if current == nil {
		s.setErr(ErrNoActiveSession)
		return nil, ErrNoActiveSession
	}

	correlationID := s.AddOptimisticUser(content)
	s.begin()
	persisted, err := s.backend.SendMessage(ctx, current.ID, content)
	if err != nil {
		s.fail(err)
		s.Rollback(correlationID)
		return nil, err
	}

	s.mu.Lock()
	s.loading = false
	s.confirmLocked(correlationID, persisted)
	s.mu.Unlock()

	s.mirrorMessages(current.ID, persisted)
	return persisted, nil
}

// RefreshActiveMessages re-fetches the active session's messages after a
// streamed response completes, replacing optimistic copies with the
// authoritative list. On failure the optimistic echo stays visible so the
// user's turn is not dropped from the transcript.
func (s *Store) RefreshActiveMessages(ctx context.Context) error {
	current := s.Current()
	if current == nil {
		return ErrNoActiveSession
	}

	s.begin()
	messages, err := s.backend.ListMessages(ctx, current.ID, api.Page{})
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.loading = false
	s.messages = wrapMessages(messages)
	s.mu.Unlock()

	s.mirrorMessages(current.ID, messages)
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// findSession returns a pointer to a copy of the cached session with id.
func (s *Store) findSession(id string) *api.ChatSession {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			c := s.sessions[i]
			return &c
		}
	}
	return nil
}

// confirmLocked retires the optimistic echo and appends the persisted pair.
func (s *Store) confirmLocked(correlationID string, persisted []api.ChatMessage) {
	kept := s.messages[:0]
	for _, message := range s.messages {
		if message.CorrelationID != correlationID {
			kept = append(kept, message)
		}
	}
	s.messages = kept
	for _, message := range persisted {
		s.messages = append(s.messages, Message{ChatMessage: message})
	}
	if s.current != nil {
		s.current.MessageCount += len(persisted)
		s.current.UpdatedAt = time.Now()
	}
}

// mirrorSessions copies sessions into the history cache, best effort.
func (s *Store) mirrorSessions(sessions []api.ChatSession) {
	if s.history == nil {
		return
	}
	for _, session := range sessions {
		_ = s.history.PutSession(session)
	}
}

// mirrorMessages copies persisted messages into the history cache, best
// effort. Optimistic copies never reach the cache.
func (s *Store) mirrorMessages(sessionID string, messages []api.ChatMessage) {
	if s.history == nil || len(messages) == 0 {
		return
	}
	_ = s.history.PutMessages(sessionID, messages)
}

func wrapMessages(messages []api.ChatMessage) []Message {
	out := make([]Message, len(messages))
	for i, message := range messages {
		out[i] = Message{ChatMessage: message}
	}
	return out
}
