// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
)

// ListMessages returns one page of a session's messages in creation order.
func (c *Client) ListMessages(ctx context.Context, sessionID string, page Page) ([]ChatMessage, error) {
	var messages []ChatMessage
	path := "/chat/sessions/" + sessionID + "/messages"
	if err := c.doAuthed(ctx, http.MethodGet, path, pageQuery(page), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a user message to the blocking (non-streaming) endpoint.
// The backend persists the user echo and the assistant reply together and
// returns both, in that order. This is also the fallback transport's network
// round trip when SSE cannot be established.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) ([]ChatMessage, error) {
	var messages []ChatMessage
	req := SendMessageRequest{SessionID: sessionID, Content: content}
	if err := c.doAuthed(ctx, http.MethodPost, "/chat/messages", nil, req, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
