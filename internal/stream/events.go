// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
)

// MaxEventSize is the maximum allowed size for a single event payload (64KB).
const MaxEventSize = 64 * 1024

// ErrUnknownEvent marks an event type this client does not fold. The backend
// emits informational kinds (ai_step, fact_check_step) that are skipped, not
// failed on.
var ErrUnknownEvent = errors.New("unknown event type")

// =============================================================================
// PHASES
// =============================================================================

// Phase names a processing stage announced by the server.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseRetrieval    Phase = "retrieval"
	PhaseReasoning    Phase = "reasoning"
	PhaseWebSearch    Phase = "web_search"
	PhaseFactCheck    Phase = "fact_check"
	PhaseResponding   Phase = "responding"
	PhaseDone         Phase = "done"
)

// =============================================================================
// EVENT UNION
// =============================================================================

// Event is one server-pushed message in a streaming response. The concrete
// types below form a closed union; Fold matches on all of them, so adding a
// kind is a compile-visible change everywhere it matters.
type Event interface {
	// Kind returns the wire discriminator for this event.
	Kind() string
}

// StatusEvent updates the display progress hint.
type StatusEvent struct {
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// PhaseEvent announces a new processing phase.
type PhaseEvent struct {
	Phase Phase  `json:"phase"`
	Title string `json:"title"`
}

// PhaseCompleteEvent closes a phase, optionally bumping progress.
type PhaseCompleteEvent struct {
	Phase    Phase    `json:"phase,omitempty"`
	Result   string   `json:"result,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// Source is a retrieved citation backing the answer.
type Source struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	URL        string  `json:"url,omitempty"`
}

// SourcesFoundEvent replaces the source list wholesale.
type SourcesFoundEvent struct {
	Sources  []Source `json:"sources"`
	Progress *float64 `json:"progress,omitempty"`
}

// ReasoningStepEvent upserts one reasoning step at a given index. Indices may
// arrive sparsely and out of order.
type ReasoningStepEvent struct {
	Step  string `json:"step"`
	Index int    `json:"index"`
}

// WebSearchQueryEvent records a live web search issued by the backend.
type WebSearchQueryEvent struct {
	Query string `json:"query"`
}

// ResponseStartEvent clears the streaming text before the answer arrives.
type ResponseStartEvent struct {
	Message string `json:"message,omitempty"`
}

// ResponseChunkEvent carries the answer text so far. Chunk is CUMULATIVE: the
// server re-sends the whole answer each tick, so folding is a full replace.
// Last write wins; a delta-append here would corrupt text on duplicated or
// gapped chunks.
type ResponseChunkEvent struct {
	Chunk    string   `json:"chunk"`
	Progress *float64 `json:"progress,omitempty"`
}

// FactCheckResultEvent delivers the verification verdict.
type FactCheckResultEvent struct {
	Status     api.FactCheckStatus `json:"status"`
	Confidence *float64            `json:"confidence,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// CompletionEvent terminates the stream successfully.
type CompletionEvent struct {
	Confidence       *float64 `json:"confidence,omitempty"`
	ValidationStatus string   `json:"validation_status,omitempty"`
	Language         string   `json:"language,omitempty"`
	SourcesUsed      []string `json:"sources_used,omitempty"`
	FactCheckerUsed  bool     `json:"fact_checker_used,omitempty"`
}

// ErrorEvent terminates the stream with a failure.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (StatusEvent) Kind() string          { return "status" }
func (PhaseEvent) Kind() string           { return "phase" }
func (PhaseCompleteEvent) Kind() string   { return "phase_complete" }
func (SourcesFoundEvent) Kind() string    { return "sources_found" }
func (ReasoningStepEvent) Kind() string   { return "reasoning_step" }
func (WebSearchQueryEvent) Kind() string  { return "web_search_query" }
func (ResponseStartEvent) Kind() string   { return "response_start" }
func (ResponseChunkEvent) Kind() string   { return "response_chunk" }
func (FactCheckResultEvent) Kind() string { return "fact_check_result" }
func (CompletionEvent) Kind() string      { return "completion" }
func (ErrorEvent) Kind() string           { return "error" }

// =============================================================================
// DECODING
// =============================================================================

// typeProbe extracts only the discriminator.
type typeProbe struct {
	Type string `json:"type"`
}

// DecodeEvent parses one JSON event payload into its typed form.
// Unknown discriminators return ErrUnknownEvent (skip, don't fail);
// malformed JSON returns a parse error the caller treats as terminal.
func DecodeEvent(data []byte) (Event, error) {
	if len(data) > MaxEventSize {
		return nil, fmt.Errorf("event exceeds %d bytes", MaxEventSize)
	}

	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed event: %w", err)
	}

	unmarshal := func(ev Event) (Event, error) {
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("malformed %s event: %w", probe.Type, err)
		}
		return ev, nil
	}

	switch probe.Type {
	case "status":
		return unmarshal(&StatusEvent{})
	case "phase":
		return unmarshal(&PhaseEvent{})
	case "phase_complete":
		return unmarshal(&PhaseCompleteEvent{})
	case "sources_found":
		return unmarshal(&SourcesFoundEvent{})
	case "reasoning_step":
		return unmarshal(&ReasoningStepEvent{})
	case "web_search_query":
		return unmarshal(&WebSearchQueryEvent{})
	case "response_start":
		return unmarshal(&ResponseStartEvent{})
	case "response_chunk":
		return unmarshal(&ResponseChunkEvent{})
	case "fact_check_result":
		return unmarshal(&FactCheckResultEvent{})
	case "completion":
		return unmarshal(&CompletionEvent{})
	case "error":
		return unmarshal(&ErrorEvent{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, probe.Type)
	}
}

// IsTerminal reports whether ev ends the stream.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case *CompletionEvent, *ErrorEvent:
		return true
	}
	return false
}
