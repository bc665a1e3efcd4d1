// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Akshat-jwr/agribot-tui/internal/stream"
)

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case SessionsLoadedMsg:
		if msg.Err != nil {
			m.showError(msg.Err.Error())
			cmds = append(cmds, clearErrorAfter(errorBannerTTL))
		}
		m.syncViewport()

	case SessionSelectedMsg:
		if msg.Err != nil {
			m.showError(msg.Err.Error())
			cmds = append(cmds, clearErrorAfter(errorBannerTTL))
		}
		m.syncViewport()

	case StreamStartedMsg:
		if msg.Err != nil {
			if msg.Err == stream.ErrStreamBusy {
				m.showError("Please wait for the current answer to finish")
			} else {
				m.state = StateReady
				m.showError(msg.Err.Error())
			}
			cmds = append(cmds, clearErrorAfter(errorBannerTTL))
		}
		m.syncViewport()

	case StreamUpdateMsg:
		m.vm = msg.VM
		if msg.VM.Terminal {
			m.state = StateReady
			if msg.VM.Error == "" {
				// Replace the optimistic echo with the server's copy.
				m.pendingEcho = ""
				cmds = append(cmds, m.refreshTranscriptCmd())
			} else {
				m.showError(msg.VM.Error)
				cmds = append(cmds, clearErrorAfter(errorBannerTTL))
			}
		}
		m.syncViewport()

	case TranscriptRefreshedMsg:
		if msg.Err != nil {
			// The echo stays visible; the transcript is refreshed on the
			// next successful operation.
			m.showError(msg.Err.Error())
			cmds = append(cmds, clearErrorAfter(errorBannerTTL))
		}
		m.syncViewport()

	case SendFailedMsg:
		m.state = StateReady
		m.pendingEcho = ""
		m.showError(msg.Err.Error())
		cmds = append(cmds, clearErrorAfter(errorBannerTTL))
		m.syncViewport()

	case ErrorClearMsg:
		if m.state == StateError {
			m.state = StateReady
		}
		m.lastError = ""
		m.store.ClearError()
	}

	// Forward remaining input to the focused components.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes key bindings; returns handled=false for keys the
// components should see.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.mode == modeSessions {
		return m.handleSessionKey(msg), true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.runner.Session().Stop()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			m.runner.Session().Stop()
			m.state = StateReady
			m.vm = m.runner.Session().ViewModel()
			m.syncViewport()
		}
		return nil, true

	case key.Matches(msg, m.keys.NewChat):
		if m.state != StateStreaming {
			m.startNewConversation()
		}
		return nil, true

	case key.Matches(msg, m.keys.Sessions):
		if m.state != StateStreaming {
			m.openSessionList()
		}
		return nil, true

	case key.Matches(msg, m.keys.Submit):
		return m.submit(), true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return nil, true

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return nil, true
	}
	return nil, false
}

// handleSessionKey drives the session picker. Every key is swallowed so the
// text input underneath stays untouched.
func (m *Model) handleSessionKey(msg tea.KeyMsg) tea.Cmd {
	sessions := m.store.Sessions()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.runner.Session().Stop()
		return tea.Quit

	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Sessions):
		m.closeSessionList()

	case key.Matches(msg, m.keys.Up):
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
		m.syncViewport()

	case key.Matches(msg, m.keys.Down):
		if m.sessionCursor < len(sessions)-1 {
			m.sessionCursor++
		}
		m.syncViewport()

	case key.Matches(msg, m.keys.Submit):
		if m.sessionCursor >= len(sessions) {
			m.closeSessionList()
			return nil
		}
		picked := sessions[m.sessionCursor]
		m.closeSessionList()
		m.vm = stream.ViewModel{}
		m.pendingEcho = ""
		return m.selectSessionCmd(picked.ID)
	}
	return nil
}

// openSessionList switches to the picker with the cursor on the active
// session.
func (m *Model) openSessionList() {
	m.mode = modeSessions
	m.sessionCursor = 0
	if current := m.store.Current(); current != nil {
		for i, s := range m.store.Sessions() {
			if s.ID == current.ID {
				m.sessionCursor = i
				break
			}
		}
	}
	m.syncViewport()
}

func (m *Model) closeSessionList() {
	m.mode = modeChat
	m.syncViewport()
}

// submit sends the typed question: optimistic echo first, then the
// streaming request.
func (m *Model) submit() tea.Cmd {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return nil
	}
	if m.state == StateStreaming {
		m.showError("Please wait for the current answer to finish")
		return clearErrorAfter(errorBannerTTL)
	}

	m.input.Reset()
	m.state = StateStreaming
	m.vm = stream.NewViewModel()
	m.pendingEcho = m.store.AddOptimisticUser(content)
	m.syncViewport()

	return tea.Batch(m.startStreamCmd(content, m.pendingEcho), m.spinner.Tick)
}

// startNewConversation drops the active selection so the next question
// creates a fresh session.
func (m *Model) startNewConversation() {
	m.vm = stream.ViewModel{}
	m.pendingEcho = ""
	m.store.ClearActive()
	m.syncViewport()
}

func (m *Model) showError(text string) {
	m.state = StateError
	m.lastError = text
}

// resize lays out the viewport between header, panel and input line.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chromeHeight := 6 // header + status + input + banners
	vpHeight := height - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4
	m.syncViewport()
}

// syncViewport re-renders the transcript and keeps the view pinned to the
// bottom while streaming.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.state == StateStreaming {
		m.viewport.GotoBottom()
	}
}
