// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a bearer token. The token is NOT stored on
// the client; callers decide whether to persist it and call WithToken.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	var token Token
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates a new account. The backend sends a verification email;
// login is possible once the address is verified.
func (c *Client) Register(ctx context.Context, email, password, fullName string) error {
	req := RegisterRequest{Email: email, Password: password, FullName: fullName}
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}
