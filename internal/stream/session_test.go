// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptTransport emits a fixed event sequence.
type scriptTransport struct {
	events []Event
	err    error
}

func (t *scriptTransport) Stream(ctx context.Context, req Request, emit func(Event)) error {
	for _, ev := range t.events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		emit(ev)
	}
	return t.err
}

// blockingTransport optionally emits events, then blocks until cancelled.
type blockingTransport struct {
	events   []Event
	started  chan struct{}
	released chan struct{}
}

func newBlockingTransport(events ...Event) *blockingTransport {
	return &blockingTransport{
		events:   events,
		started:  make(chan struct{}),
		released: make(chan struct{}),
	}
}

func (t *blockingTransport) Stream(ctx context.Context, req Request, emit func(Event)) error {
	for _, ev := range t.events {
		emit(ev)
	}
	close(t.started)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.released:
		return nil
	}
}

// collect drains updates until a terminal or non-streaming view model shows
// up, returning every snapshot seen.
func collect(t *testing.T, updates <-chan ViewModel) []ViewModel {
	t.Helper()
	var all []ViewModel
	deadline := time.After(5 * time.Second)
	for {
		select {
		case vm := <-updates:
			all = append(all, vm)
			if vm.Terminal || !vm.IsStreaming {
				return all
			}
		case <-deadline:
			t.Fatal("timed out waiting for terminal view model")
		}
	}
}

func TestSessionHappyPath(t *testing.T) {
	transport := &scriptTransport{events: []Event{
		&StatusEvent{Progress: 10},
		&PhaseEvent{Phase: PhaseReasoning, Title: "Thinking"},
		&ResponseStartEvent{},
		&ResponseChunkEvent{Chunk: "Plant rice now"},
		&CompletionEvent{},
	}}

	updates := make(chan ViewModel, 32)
	session := NewSession(transport).OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{SessionID: "s", Content: "q", Token: "t"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	all := collect(t, updates)
	final := all[len(all)-1]
	if final.StreamingText != "Plant rice now" || !final.Terminal || final.Error != "" {
		t.Errorf("final = %+v", final)
	}
	if session.State() != StateTerminal {
		t.Errorf("state = %v, want terminal", session.State())
	}

	// The first update is the reset: zero progress, live, empty text.
	first := all[0]
	if !first.IsStreaming || first.Progress != 0 || first.StreamingText != "" {
		t.Errorf("view model not reset before first event: %+v", first)
	}
}

func TestSessionRejectsConcurrentStart(t *testing.T) {
	transport := newBlockingTransport(&StatusEvent{Progress: 10})
	session := NewSession(transport).WithIdleTimeout(0)

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	<-transport.started

	if err := session.Start(context.Background(), Request{}); !errors.Is(err, ErrStreamBusy) {
		t.Fatalf("second Start: want ErrStreamBusy, got %v", err)
	}

	// Only the first stream's folds are present; a rejected Start must not
	// have reset or interleaved anything.
	vm := session.ViewModel()
	if vm.Progress != 10 || !vm.IsStreaming {
		t.Errorf("view model disturbed by rejected Start: %+v", vm)
	}

	close(transport.released)
}

func TestSessionTransportErrorBecomesTerminalFold(t *testing.T) {
	transport := &scriptTransport{
		events: []Event{&ResponseChunkEvent{Chunk: "partial"}},
		err:    errors.New("connection reset"),
	}
	updates := make(chan ViewModel, 32)
	session := NewSession(transport).OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	all := collect(t, updates)
	final := all[len(all)-1]
	if final.Error != "connection reset" {
		t.Errorf("Error = %q", final.Error)
	}
	if final.StreamingText != "partial" {
		t.Errorf("partial text lost: %q", final.StreamingText)
	}
}

func TestSessionEarlyCloseBecomesError(t *testing.T) {
	// Transport returns nil without a terminal event: treat as dropped.
	transport := &scriptTransport{events: []Event{&StatusEvent{Progress: 50}}}
	updates := make(chan ViewModel, 32)
	session := NewSession(transport).OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	all := collect(t, updates)
	final := all[len(all)-1]
	if final.Error == "" || final.IsStreaming {
		t.Errorf("early close must surface an error: %+v", final)
	}
}

func TestSessionFallbackOnOpenFailure(t *testing.T) {
	primary := &scriptTransport{err: errors.New("connrefused")}
	fallback := &scriptTransport{events: []Event{
		&ResponseChunkEvent{Chunk: "from fallback"},
		&CompletionEvent{},
	}}

	updates := make(chan ViewModel, 32)
	session := NewSession(primary).WithFallback(fallback).OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	all := collect(t, updates)
	final := all[len(all)-1]
	if final.Error != "" || final.StreamingText != "from fallback" {
		t.Errorf("fallback did not engage: %+v", final)
	}
}

func TestSessionNoFallbackAfterFirstEvent(t *testing.T) {
	// Once the push transport has delivered an event, a mid-stream failure
	// is terminal; retry is manual (a fresh Start).
	primary := &scriptTransport{
		events: []Event{&StatusEvent{Progress: 10}},
		err:    errors.New("dropped mid-stream"),
	}
	fallback := &scriptTransport{events: []Event{&CompletionEvent{}}}

	updates := make(chan ViewModel, 32)
	session := NewSession(primary).WithFallback(fallback).OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	all := collect(t, updates)
	final := all[len(all)-1]
	if final.Error != "dropped mid-stream" {
		t.Errorf("Error = %q, fallback must not run mid-stream", final.Error)
	}
}

func TestSessionStop(t *testing.T) {
	transport := newBlockingTransport(&ResponseChunkEvent{Chunk: "partial"})
	session := NewSession(transport).WithIdleTimeout(0)

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	<-transport.started

	session.Stop()

	vm := session.ViewModel()
	if vm.IsStreaming {
		t.Error("IsStreaming after Stop")
	}
	if vm.StreamingText != "partial" {
		t.Errorf("Stop must not roll back partial state: %q", vm.StreamingText)
	}
	if session.State() != StateIdle {
		t.Errorf("state = %v, want idle", session.State())
	}

	// Stop when idle is a no-op.
	session.Stop()

	// A new Start works after Stop and resets the view model.
	done := &scriptTransport{events: []Event{&CompletionEvent{}}}
	session.transport = done
	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestSessionIdleWatchdog(t *testing.T) {
	transport := newBlockingTransport() // never emits, never returns
	updates := make(chan ViewModel, 32)
	session := NewSession(transport).
		WithIdleTimeout(30 * time.Millisecond).
		OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}

	all := collect(t, updates)
	final := all[len(all)-1]
	if final.Error == "" {
		t.Errorf("watchdog must force a terminal error: %+v", final)
	}
	if session.State() != StateTerminal {
		t.Errorf("state = %v", session.State())
	}
}

func TestSessionRestartAfterTerminal(t *testing.T) {
	session := NewSession(&scriptTransport{events: []Event{&ErrorEvent{Message: "first failed"}}})
	updates := make(chan ViewModel, 32)
	session.OnUpdate(func(vm ViewModel) { updates <- vm })

	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatal(err)
	}
	collect(t, updates)

	// Manual retry: errors persist until the next Start, which resets.
	session.transport = &scriptTransport{events: []Event{&CompletionEvent{}}}
	if err := session.Start(context.Background(), Request{}); err != nil {
		t.Fatalf("restart after terminal: %v", err)
	}
	all := collect(t, updates)
	if all[0].Error != "" {
		t.Errorf("view model not reset on restart: %+v", all[0])
	}
}
