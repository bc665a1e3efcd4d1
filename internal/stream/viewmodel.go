// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"time"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
)

// =============================================================================
// VIEW MODEL
// =============================================================================

// ReasoningStep is one entry in the sparse reasoning list. A zero Step with
// Present=false marks a gap left by out-of-order arrival.
type ReasoningStep struct {
	Step      string
	Index     int
	Completed bool
	Present   bool
}

// WebSearchQuery records a live search the backend performed.
type WebSearchQuery struct {
	Query     string
	Timestamp time.Time
}

// ViewModel is the continuously updated projection of one streaming query.
// It is a value: Fold never mutates its input, so snapshots handed to the UI
// stay stable while the next event is applied.
type ViewModel struct {
	// IsStreaming is true from session start until a terminal event.
	IsStreaming bool

	// Terminal is set by completion or error; once set, Fold is a no-op.
	Terminal bool

	// Progress is a display hint in [0,100], monotonic non-decreasing.
	// Not authoritative over completion.
	Progress float64

	// CurrentPhase and PhaseTitle reflect the last phase event.
	CurrentPhase Phase
	PhaseTitle   string

	// StreamingText is the answer so far. response_chunk replaces it
	// wholesale (cumulative chunks, last write wins).
	StreamingText string

	// Sources is replaced wholesale by each sources_found event.
	Sources []Source

	// ReasoningSteps is a sparse, index-addressed list.
	ReasoningSteps []ReasoningStep

	// WebSearchQueries is append-only.
	WebSearchQueries []WebSearchQuery

	// FactCheckStatus and Confidence come from fact_check_result/completion.
	FactCheckStatus api.FactCheckStatus
	Confidence      float64

	// Error is terminal; empty while the stream is healthy.
	Error string
}

// NewViewModel returns the zero state of a freshly started stream.
func NewViewModel() ViewModel {
	return ViewModel{
		IsStreaming:  true,
		CurrentPhase: PhaseIdle,
	}
}

// =============================================================================
// FOLD
// =============================================================================

// Fold applies one event to the view model and returns the next state.
// It is pure apart from timestamping web search queries; FoldAt removes
// even that for tests.
func Fold(vm ViewModel, ev Event) ViewModel {
	return FoldAt(vm, ev, time.Now())
}

// FoldAt is Fold with an explicit clock.
//
// Events after a terminal event are dropped: the session is over and a late
// chunk from a half-dead connection must not resurrect it.
func FoldAt(vm ViewModel, ev Event, now time.Time) ViewModel {
	if vm.Terminal {
		return vm
	}

	switch e := ev.(type) {
	case *StatusEvent:
		vm.Progress = bumpProgress(vm.Progress, e.Progress)

	case *PhaseEvent:
		vm.CurrentPhase = e.Phase
		vm.PhaseTitle = e.Title

	case *PhaseCompleteEvent:
		if e.Progress != nil {
			vm.Progress = bumpProgress(vm.Progress, *e.Progress)
		}

	case *SourcesFoundEvent:
		vm.Sources = e.Sources
		if e.Progress != nil {
			vm.Progress = bumpProgress(vm.Progress, *e.Progress)
		}

	case *ReasoningStepEvent:
		vm.ReasoningSteps = upsertStep(vm.ReasoningSteps, e.Index, e.Step)

	case *WebSearchQueryEvent:
		queries := make([]WebSearchQuery, len(vm.WebSearchQueries), len(vm.WebSearchQueries)+1)
		copy(queries, vm.WebSearchQueries)
		vm.WebSearchQueries = append(queries, WebSearchQuery{Query: e.Query, Timestamp: now})

	case *ResponseStartEvent:
		vm.StreamingText = ""

	case *ResponseChunkEvent:
		// Cumulative replace, never append.
		vm.StreamingText = e.Chunk
		if e.Progress != nil {
			vm.Progress = bumpProgress(vm.Progress, *e.Progress)
		}

	case *FactCheckResultEvent:
		vm.FactCheckStatus = e.Status
		if e.Confidence != nil {
			vm.Confidence = *e.Confidence
		}

	case *CompletionEvent:
		vm.IsStreaming = false
		vm.Terminal = true
		vm.Progress = 100
		vm.CurrentPhase = PhaseDone
		if e.Confidence != nil {
			vm.Confidence = *e.Confidence
		}
		if e.ValidationStatus != "" {
			vm.FactCheckStatus = api.FactCheckStatus(e.ValidationStatus)
		}
		vm.ReasoningSteps = completeSteps(vm.ReasoningSteps)

	case *ErrorEvent:
		message := e.Message
		if message == "" {
			message = "An error occurred"
		}
		vm.Error = message
		vm.IsStreaming = false
		vm.Terminal = true
	}

	return vm
}

// bumpProgress keeps the progress hint monotonic and inside [0,100].
func bumpProgress(prev, next float64) float64 {
	if next < prev {
		return prev
	}
	if next > 100 {
		return 100
	}
	return next
}

// maxReasoningSteps bounds how far a reasoning_step index can grow the list.
// Real streams stay in single digits; anything past this is a hostile or
// corrupt payload and is dropped like a negative index.
const maxReasoningSteps = 1024

// upsertStep places step text at index, growing the list with gap markers as
// needed. Idempotent per index so duplicated events are harmless.
func upsertStep(steps []ReasoningStep, index int, step string) []ReasoningStep {
	if index < 0 || index >= maxReasoningSteps {
		return steps
	}
	size := len(steps)
	if index+1 > size {
		size = index + 1
	}
	next := make([]ReasoningStep, size)
	copy(next, steps)
	for i := range next {
		if !next[i].Present {
			next[i].Index = i
		}
	}
	next[index] = ReasoningStep{Step: step, Index: index, Present: true}
	return next
}

// completeSteps marks every step completed, including ones never observed
// mid-stream.
func completeSteps(steps []ReasoningStep) []ReasoningStep {
	if len(steps) == 0 {
		return steps
	}
	next := make([]ReasoningStep, len(steps))
	copy(next, steps)
	for i := range next {
		next[i].Completed = true
	}
	return next
}
