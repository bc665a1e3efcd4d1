// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
)

// streamPath is the EventSource-compatible endpoint. Session, content and
// token travel as query parameters because EventSource cannot set headers;
// the token-in-URL exposure is the server's contract, not this client's
// choice.
const streamPath = "/api/v1/streaming/chat"

// sharedStreamingClient has no overall timeout; stream lifetime is bounded
// by the request context and the session's idle watchdog.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Request identifies one streaming query.
type Request struct {
	SessionID string
	Content   string
	Token     string
}

// Transport delivers the event sequence for one query. Stream blocks until
// the sequence ends (terminal event, server close, or ctx cancellation) and
// calls emit for each event in arrival order.
type Transport interface {
	Stream(ctx context.Context, req Request, emit func(Event)) error
}

// =============================================================================
// PUSH TRANSPORT (SSE)
// =============================================================================

// PushTransport consumes the server's SSE endpoint. Reconnection is not
// automatic; a dropped connection surfaces once as a terminal error and the
// caller retries by starting a new stream.
type PushTransport struct {
	baseURL    string
	httpClient *http.Client
}

// NewPushTransport creates the SSE transport for the given server.
func NewPushTransport(baseURL string) *PushTransport {
	return &PushTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedStreamingClient,
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func (t *PushTransport) WithHTTPClient(hc *http.Client) *PushTransport {
	t.httpClient = hc
	return t
}

// Stream opens the SSE connection and emits decoded events until a terminal
// event or stream end. Unknown event kinds are skipped; malformed payloads
// abort the stream with a parse error.
func (t *PushTransport) Stream(ctx context.Context, req Request, emit func(Event)) error {
	if req.Token == "" {
		return api.ErrNotAuthenticated
	}

	q := url.Values{}
	q.Set("session_id", req.SessionID)
	q.Set("content", req.Content)
	q.Set("token", req.Token)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+streamPath+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stream rejected (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	reader := NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Body reads fail with the context error once cancelled.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", err)
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				continue
			}
			return err
		}

		emit(ev)
		if IsTerminal(ev) {
			return nil
		}
	}
}

// =============================================================================
// FALLBACK TRANSPORT (blocking POST + simulated replay)
// =============================================================================

// Fallback timing defaults. The phase delay paces the synthetic phase ticks;
// the word delay paces the cumulative chunk replay.
const (
	DefaultPhaseDelay = 250 * time.Millisecond
	DefaultWordDelay  = 40 * time.Millisecond
)

// FallbackTransport answers a query with one blocking request and replays
// the result as a synthetic event sequence, so the view model animates the
// same way it would over SSE.
type FallbackTransport struct {
	client     *api.Client
	phaseDelay time.Duration
	wordDelay  time.Duration
}

// NewFallbackTransport creates the fallback transport over the REST client.
func NewFallbackTransport(client *api.Client) *FallbackTransport {
	return &FallbackTransport{
		client:     client,
		phaseDelay: DefaultPhaseDelay,
		wordDelay:  DefaultWordDelay,
	}
}

// WithDelays overrides the replay pacing (tests use zero delays).
func (t *FallbackTransport) WithDelays(phase, word time.Duration) *FallbackTransport {
	t.phaseDelay = phase
	t.wordDelay = word
	return t
}

// Stream issues the blocking round trip and synthesizes the event sequence:
// phase ticks, response_start, word-by-word cumulative chunks, the server's
// fact-check verdict, then completion. The replay loop honors ctx so Stop
// halts the timer instead of leaving it running against a dead view model.
func (t *FallbackTransport) Stream(ctx context.Context, req Request, emit func(Event)) error {
	emit(&StatusEvent{Progress: 10, Message: "Processing your agricultural query..."})
	emit(&PhaseEvent{Phase: PhaseInitializing, Title: "Contacting Agri-Bot"})

	messages, err := t.client.SendMessage(ctx, req.SessionID, req.Content)
	if err != nil {
		return err
	}

	var assistant *api.ChatMessage
	for i := range messages {
		if messages[i].Role == api.RoleAssistant {
			assistant = &messages[i]
		}
	}
	if assistant == nil {
		return errors.New("backend returned no assistant message")
	}

	progress := 60.0
	emit(&PhaseCompleteEvent{Phase: PhaseInitializing, Progress: &progress})
	if err := sleepCtx(ctx, t.phaseDelay); err != nil {
		return err
	}
	emit(&PhaseEvent{Phase: PhaseResponding, Title: "Delivering verified agricultural advice"})
	emit(&ResponseStartEvent{})

	words := strings.Fields(assistant.Content)
	var sb strings.Builder
	for i, word := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
		p := 85 + float64(i+1)/float64(len(words))*14
		emit(&ResponseChunkEvent{Chunk: sb.String(), Progress: &p})
		if err := sleepCtx(ctx, t.wordDelay); err != nil {
			return err
		}
	}
	// Pin the exact text: the word replay normalizes whitespace.
	emit(&ResponseChunkEvent{Chunk: assistant.Content})

	if assistant.FactCheckStatus != api.FactCheckNone {
		emit(&FactCheckResultEvent{
			Status:     assistant.FactCheckStatus,
			Confidence: assistant.ConfidenceScore,
		})
	}

	emit(&CompletionEvent{
		Confidence:       assistant.ConfidenceScore,
		ValidationStatus: string(assistant.FactCheckStatus),
	})
	return nil
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
