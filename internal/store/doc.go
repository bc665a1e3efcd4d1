// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package store owns the client's view of chat sessions and messages.
//
// The backend is authoritative; the store keeps a cached session list, a
// pointer to the current session and the current session's message list,
// and reconciles them after every operation. User messages are echoed
// optimistically with a correlation id so a failed round trip rolls back
// exactly the message it belongs to.
//
// Concurrent mutating calls on the same session are not queued or
// version-checked; callers (the single chat surface) are expected not to
// overlap them. That is a documented limitation, not a guarantee.
package store
