// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
)

// fakeBackend is an in-memory Backend with per-method failure injection.
type fakeBackend struct {
	sessions map[string]*api.ChatSession
	messages map[string][]api.ChatMessage
	nextID   int
	failNext map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: map[string]*api.ChatSession{},
		messages: map[string][]api.ChatMessage{},
		failNext: map[string]error{},
	}
}

func (f *fakeBackend) fail(method string) error {
	if err, ok := f.failNext[method]; ok {
		delete(f.failNext, method)
		return err
	}
	return nil
}

func (f *fakeBackend) CreateSession(_ context.Context, req api.CreateSessionRequest) (*api.ChatSession, error) {
	if err := f.fail("CreateSession"); err != nil {
		return nil, err
	}
	f.nextID++
	session := &api.ChatSession{
		ID:                 fmt.Sprintf("sess-%d", f.nextID),
		Title:              req.Title,
		LanguagePreference: req.LanguagePreference,
		IsActive:           true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeBackend) ListSessions(context.Context, api.Page) (*api.SessionList, error) {
	if err := f.fail("ListSessions"); err != nil {
		return nil, err
	}
	list := &api.SessionList{}
	for _, session := range f.sessions {
		list.Sessions = append(list.Sessions, *session)
	}
	list.Total = len(list.Sessions)
	return list, nil
}

func (f *fakeBackend) UpdateSession(_ context.Context, id string, patch api.UpdateSessionRequest) (*api.ChatSession, error) {
	if err := f.fail("UpdateSession"); err != nil {
		return nil, err
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	if patch.Title != nil {
		session.Title = *patch.Title
	}
	if patch.SatisfactionRating != nil {
		session.SatisfactionRating = patch.SatisfactionRating
	}
	return session, nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	if err := f.fail("DeleteSession"); err != nil {
		return err
	}
	if _, ok := f.sessions[id]; !ok {
		return api.ErrNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeBackend) ListMessages(_ context.Context, sessionID string, _ api.Page) ([]api.ChatMessage, error) {
	if err := f.fail("ListMessages"); err != nil {
		return nil, err
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, api.ErrNotFound
	}
	return append([]api.ChatMessage(nil), f.messages[sessionID]...), nil
}

func (f *fakeBackend) SendMessage(_ context.Context, sessionID, content string) ([]api.ChatMessage, error) {
	if err := f.fail("SendMessage"); err != nil {
		return nil, err
	}
	user := api.ChatMessage{ID: int64(len(f.messages[sessionID]) + 1), SessionID: sessionID, Role: api.RoleUser, Content: content, CreatedAt: time.Now()}
	assistant := api.ChatMessage{ID: user.ID + 1, SessionID: sessionID, Role: api.RoleAssistant, Content: "echo: " + content, CreatedAt: time.Now()}
	f.messages[sessionID] = append(f.messages[sessionID], user, assistant)
	return []api.ChatMessage{user, assistant}, nil
}

func TestCreateSelectSendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	created, err := s.CreateSession(ctx, "Test", "english")
	require.NoError(t, err)

	// A fresh session has an empty message list.
	require.NoError(t, s.SelectSession(ctx, created.ID))
	require.Empty(t, s.Messages())
	require.Equal(t, created.ID, s.Current().ID)

	_, err = s.SendMessage(ctx, "hi")
	require.NoError(t, err)

	// Re-selecting yields the persisted copy including the user message.
	require.NoError(t, s.SelectSession(ctx, created.ID))
	messages := s.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, api.RoleUser, messages[0].Role)
	require.Equal(t, "hi", messages[0].Content)
	require.False(t, messages[0].Pending)
}

func TestSendMessageRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	created, err := s.CreateSession(ctx, "Test", "")
	require.NoError(t, err)
	require.NoError(t, s.SelectSession(ctx, created.ID))

	backend.failNext["SendMessage"] = errors.New("model overloaded")
	_, err = s.SendMessage(ctx, "hi")
	require.Error(t, err)

	// The optimistic user echo is rolled back; the list is as before.
	require.Empty(t, s.Messages())
	require.Equal(t, "model overloaded", s.Err())
	require.False(t, s.Loading())

	// Retry after the failure works and clears nothing implicitly.
	_, err = s.SendMessage(ctx, "hi")
	require.NoError(t, err)
	require.Len(t, s.Messages(), 2)
}

func TestSendMessageWithoutSession(t *testing.T) {
	s := New(newFakeBackend(), "english")
	_, err := s.SendMessage(context.Background(), "hi")
	require.ErrorIs(t, err, ErrNoActiveSession)
	require.NotEmpty(t, s.Err())
}

func TestSelectSessionFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	first, err := s.CreateSession(ctx, "First", "")
	require.NoError(t, err)
	require.NoError(t, s.SelectSession(ctx, first.ID))
	_, err = s.SendMessage(ctx, "hello")
	require.NoError(t, err)

	backend.failNext["ListMessages"] = errors.New("timeout")
	require.Error(t, s.SelectSession(ctx, "sess-other"))

	// No partial application: prior session and list remain.
	require.Equal(t, first.ID, s.Current().ID)
	require.Len(t, s.Messages(), 2)
	require.Equal(t, "timeout", s.Err())
}

func TestDeleteActiveSessionClearsPointer(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	first, _ := s.CreateSession(ctx, "First", "")
	second, _ := s.CreateSession(ctx, "Second", "")
	require.NoError(t, s.SelectSession(ctx, first.ID))

	// Deleting a non-active session only removes it from the list.
	require.NoError(t, s.DeleteSession(ctx, second.ID))
	require.NotNil(t, s.Current())
	require.Len(t, s.Sessions(), 1)

	// Deleting the active session clears pointer and message list.
	require.NoError(t, s.DeleteSession(ctx, first.ID))
	require.Nil(t, s.Current())
	require.Empty(t, s.Messages())
	require.Empty(t, s.Sessions())
}

func TestEnsureSessionCreatesOnDemand(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeBackend(), "hindi")

	session, err := s.EnsureSession(ctx, "When should I plant rice?")
	require.NoError(t, err)
	require.Equal(t, "When should I plant rice?", session.Title)
	require.Equal(t, "hindi", session.LanguagePreference)
	require.Equal(t, session.ID, s.Current().ID)
	require.Empty(t, s.Messages())

	// Second call returns the active session without creating another.
	again, err := s.EnsureSession(ctx, "other text")
	require.NoError(t, err)
	require.Equal(t, session.ID, again.ID)
	require.Len(t, s.Sessions(), 1)
}

func TestOptimisticEchoAndRefresh(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	created, _ := s.CreateSession(ctx, "Test", "")
	require.NoError(t, s.SelectSession(ctx, created.ID))

	correlationID := s.AddOptimisticUser("hi")
	messages := s.Messages()
	require.Len(t, messages, 1)
	require.True(t, messages[0].Pending)
	require.Equal(t, correlationID, messages[0].CorrelationID)

	// Simulate the streamed answer being persisted server-side, then refresh.
	_, err := backend.SendMessage(ctx, created.ID, "hi")
	require.NoError(t, err)
	require.NoError(t, s.RefreshActiveMessages(ctx))

	messages = s.Messages()
	require.Len(t, messages, 2)
	for _, message := range messages {
		require.False(t, message.Pending)
		require.Empty(t, message.CorrelationID)
	}
}

func TestRollbackByCorrelationID(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	created, _ := s.CreateSession(ctx, "Test", "")
	require.NoError(t, s.SelectSession(ctx, created.ID))

	keep := s.AddOptimisticUser("first")
	drop := s.AddOptimisticUser("second")
	s.Rollback(drop)

	messages := s.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, keep, messages[0].CorrelationID)

	// Unknown and empty ids are no-ops.
	s.Rollback("not-there")
	s.Rollback("")
	require.Len(t, s.Messages(), 1)
}

func TestErrorSlotOverwrittenAndCleared(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	backend.failNext["ListSessions"] = errors.New("first error")
	require.Error(t, s.LoadSessions(ctx))
	require.Equal(t, "first error", s.Err())

	backend.failNext["ListSessions"] = errors.New("second error")
	require.Error(t, s.LoadSessions(ctx))
	require.Equal(t, "second error", s.Err())

	s.ClearError()
	require.Empty(t, s.Err())
}

func TestUpdateSessionRefreshesCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := New(backend, "english")

	created, _ := s.CreateSession(ctx, "Old title", "")
	require.NoError(t, s.SelectSession(ctx, created.ID))

	title := "New title"
	require.NoError(t, s.UpdateSession(ctx, created.ID, api.UpdateSessionRequest{Title: &title}))
	require.Equal(t, "New title", s.Current().Title)
	require.Equal(t, "New title", s.Sessions()[0].Title)
}
