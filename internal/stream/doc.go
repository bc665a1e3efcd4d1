// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package stream implements the streaming-response state machine for chat
// queries against the Agri-Bot backend.
//
// The backend answers a query as a sequence of typed Server-Sent Events:
// progress ticks, processing phases, retrieved sources, reasoning steps,
// cumulative response text, a fact-check verdict and a terminal completion
// or error. This package turns that sequence into a continuously updated
// ViewModel via a pure fold, so the reduction can be tested with a literal
// list of events and no network at all.
//
// Layering, top down:
//
//	Session      one in-flight query; states idle -> streaming -> terminal
//	Transport    push (SSE) or fallback (blocking POST + simulated replay)
//	Reader       SSE wire framing
//	Event        typed union decoded from each frame
//	Fold         (ViewModel, Event) -> ViewModel
//
// If the push transport cannot be established the session degrades to the
// fallback transport automatically: the final answer is fetched in one
// round trip and replayed word by word, so the UI animates progressively
// instead of blocking in an ambiguous state.
package stream
