// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
)

// CreateSession creates a new chat session. Title and language are optional;
// the backend derives a title from the first message when empty.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*ChatSession, error) {
	var session ChatSession
	if err := c.doAuthed(ctx, http.MethodPost, "/chat/sessions", nil, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns one page of the user's sessions, newest first
// (server-defined order, preserved as received).
func (c *Client) ListSessions(ctx context.Context, page Page) (*SessionList, error) {
	var list SessionList
	if err := c.doAuthed(ctx, http.MethodGet, "/chat/sessions", pageQuery(page), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSession fetches a single session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*ChatSession, error) {
	var session ChatSession
	if err := c.doAuthed(ctx, http.MethodGet, "/chat/sessions/"+id, nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession patches title/active/rating/language on a session.
func (c *Client) UpdateSession(ctx context.Context, id string, patch UpdateSessionRequest) (*ChatSession, error) {
	var session ChatSession
	if err := c.doAuthed(ctx, http.MethodPut, "/chat/sessions/"+id, nil, patch, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doAuthed(ctx, http.MethodDelete, "/chat/sessions/"+id, nil, nil, nil)
}
