// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package chat provides the Bubble Tea chat view for agribot.
//
// The view renders the active session transcript, a live streaming panel
// (phase, progress, reasoning steps, sources and fact check verdict) and
// an input line. Streaming events arrive as typed messages delivered
// through the program's Send method, so all state transitions happen on
// the Bubble Tea loop.
package chat
