// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/Akshat-jwr/agribot-tui/internal/config"
	"github.com/Akshat-jwr/agribot-tui/internal/store"
	"github.com/Akshat-jwr/agribot-tui/internal/stream"
	"github.com/Akshat-jwr/agribot-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streamed answer
	StateError                  // Showing an error banner
)

// errorBannerTTL is how long the error banner stays up before
// auto-dismissing.
const errorBannerTTL = 6 * time.Second

// viewMode switches the main pane between the transcript and the session
// picker list.
type viewMode int

const (
	modeChat viewMode = iota
	modeSessions
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	mode  viewMode

	// Cursor position inside the session picker.
	sessionCursor int

	theme *styles.Theme
	cfg   *config.Config

	store  *store.Store
	runner *StreamRunner
	token  string

	// Dimensions
	width  int
	height int
	ready  bool

	// Live streaming projection
	vm stream.ViewModel

	// Correlation id of the optimistic echo for the in-flight question.
	pendingEcho string

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     KeyMap

	// Markdown rendering; nil falls back to plain text.
	renderer *glamour.TermRenderer

	lastError string
}

// New creates the chat model. token is the bearer token streamed requests
// carry; the store's backend client holds its own copy.
func New(cfg *config.Config, st *store.Store, runner *StreamRunner, token string) *Model {
	input := textinput.New()
	input.Placeholder = "Ask about your crops, soil, weather..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		state:  StateReady,
		theme:  styles.NewTheme(),
		cfg:    cfg,
		store:  st,
		runner: runner,
		token:  token,
		input:  input,
		spinner: sp,
		keys:   DefaultKeyMap(),
	}
	m.spinner.Style = m.theme.Spinner

	if cfg.UI.Markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			m.renderer = renderer
		}
	}

	return m
}

// Init loads the session list and starts the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessionsCmd(), m.spinner.Tick)
}

// =============================================================================
// COMMANDS
// =============================================================================

// opTimeout bounds every background store operation.
func (m *Model) opTimeout() time.Duration {
	return time.Duration(m.cfg.Server.TimeoutSecs) * time.Second
}

func (m *Model) loadSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
		defer cancel()
		err := m.store.LoadSessions(ctx)
		return SessionsLoadedMsg{Sessions: m.store.Sessions(), Err: err}
	}
}

// startStreamCmd ensures a session exists, records the optimistic echo
// and opens the stream. The echo's correlation id rides back in the model
// via pendingEcho before the command runs; Start failures roll it back.
func (m *Model) startStreamCmd(content, correlationID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
		defer cancel()

		session, err := m.store.EnsureSession(ctx, content)
		if err != nil {
			m.store.Rollback(correlationID)
			return SendFailedMsg{Err: err}
		}

		err = m.runner.Session().Start(context.Background(), stream.Request{
			SessionID: session.ID,
			Content:   content,
			Token:     m.token,
		})
		if err != nil && err != stream.ErrStreamBusy {
			m.store.Rollback(correlationID)
			return SendFailedMsg{Err: err}
		}
		return StreamStartedMsg{Err: err}
	}
}

// selectSessionCmd loads the picked session's transcript.
func (m *Model) selectSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
		defer cancel()
		return SessionSelectedMsg{Err: m.store.SelectSession(ctx, id)}
	}
}

// refreshTranscriptCmd replaces optimistic copies with the server's
// authoritative list after a stream completes.
func (m *Model) refreshTranscriptCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout())
		defer cancel()
		return TranscriptRefreshedMsg{Err: m.store.RefreshActiveMessages(ctx)}
	}
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ErrorClearMsg{}
	})
}
