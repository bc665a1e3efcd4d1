// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrNotAuthenticated indicates a protected call was attempted without
	// a bearer token. Raised client-side, before any request is sent.
	ErrNotAuthenticated = errors.New("not authenticated: run 'agribot login' first")

	// ErrAuthFailed indicates the server rejected the token or credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the session or message does not exist or is not
	// owned by the authenticated user.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited indicates the server throttled the request.
	ErrRateLimited = errors.New("rate limited by server")
)

// APIError is a non-2xx response that did not map to a sentinel. Message is
// the server's detail field when parseable, else the raw body or status text.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, http.StatusText(e.Status))
}

// errorDetail matches the backend's FastAPI error envelope.
type errorDetail struct {
	Detail string `json:"detail"`
}
