// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package api implements the REST client for the Agri-Bot backend.
//
// It covers the authentication endpoints (login/register), the chat session
// CRUD surface, and the non-streaming message endpoint. Streaming lives in
// the stream package; this package only performs request/response calls.
//
// Every protected call requires a bearer token. The client refuses to issue
// a protected request without one (ErrNotAuthenticated) instead of letting
// the server reject it late.
package api
