// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package chat

import (
	"fmt"
	"strings"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/config"
	"github.com/Akshat-jwr/agribot-tui/internal/store"
	"github.com/Akshat-jwr/agribot-tui/internal/stream"
	"github.com/Akshat-jwr/agribot-tui/internal/util"
)

// progressBarWidth is the character width of the streaming progress bar.
const progressBarWidth = 30

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.lastError != "" {
		b.WriteString(m.theme.ErrorBanner.Width(m.width - 2).Render(m.lastError))
		b.WriteString("\n")
	}

	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// =============================================================================
// CHROME
// =============================================================================

func (m *Model) renderHeader() string {
	title := "Agri-Bot"
	if current := m.store.Current(); current != nil && current.Title != "" {
		title = util.TruncateDisplay(current.Title, m.width-20)
	}
	return m.theme.Header.Width(m.width).Render(
		m.theme.HeaderTitle.Render("🌾 " + title),
	)
}

func (m *Model) renderInput() string {
	prompt := m.theme.InputPrompt.Render("> ")
	return prompt + m.input.View()
}

func (m *Model) renderStatusBar() string {
	parts := []string{
		m.theme.StatusKey.Render("lang ") + m.theme.StatusValue.Render(config.DisplayLanguage(m.cfg.Chat.Language)),
	}
	switch m.state {
	case StateStreaming:
		parts = append(parts, m.spinner.View()+m.theme.StatusValue.Render(" streaming"))
	default:
		parts = append(parts, m.theme.StatusValue.Render("ready"))
	}
	help := "Enter send · Esc stop · C-n new · C-s sessions · C-c quit"
	if m.mode == modeSessions {
		help = "Enter open · Esc back · C-c quit"
	}
	parts = append(parts, m.theme.HelpText.Render(help))
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders persisted messages followed by the live
// streaming panel, or the session picker when it is open.
func (m *Model) renderTranscript() string {
	if m.mode == modeSessions {
		return m.renderSessionList()
	}

	var b strings.Builder

	messages := m.store.Messages()
	if len(messages) == 0 && !m.vm.IsStreaming {
		b.WriteString(m.theme.HelpText.Render(
			"Ask your first farming question. Answers stream in live and are\n" +
				"fact-checked against agricultural sources.\n"))
	}

	for _, msg := range messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.vm.IsStreaming || (m.vm.Terminal && m.pendingEcho != "") {
		b.WriteString(m.renderStreamingPanel())
	}

	return b.String()
}

// renderSessionList draws the picker: one line per session, newest first as
// the server orders them, with the cursor row highlighted.
func (m *Model) renderSessionList() string {
	sessions := m.store.Sessions()
	var b strings.Builder
	b.WriteString(m.theme.PhaseTitle.Render("Conversations"))
	b.WriteString("\n\n")

	if len(sessions) == 0 {
		b.WriteString(m.theme.HelpText.Render("No conversations yet. Press Esc and ask a question."))
		b.WriteString("\n")
		return b.String()
	}

	for i, s := range sessions {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		line := fmt.Sprintf("%s  %s",
			util.TruncateDisplay(title, m.width-24),
			m.theme.MessageTime.Render(fmt.Sprintf("%d msgs · %s",
				s.MessageCount, s.UpdatedAt.Local().Format("Jan 2 15:04"))),
		)
		if i == m.sessionCursor {
			b.WriteString(m.theme.SourceTitle.Render("▸ ") + m.theme.SourceTitle.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg store.Message) string {
	var b strings.Builder

	label := m.theme.UserLabel.Render("You")
	if msg.Role == api.RoleAssistant {
		label = m.theme.AssistantLabel.Render("Agri-Bot")
	}
	stamp := m.theme.MessageTime.Render(msg.CreatedAt.Local().Format("15:04"))
	b.WriteString(label + " " + stamp)
	if msg.Pending {
		b.WriteString(" " + m.theme.PendingMark.Render("(sending…)"))
	}
	b.WriteString("\n")

	b.WriteString(m.renderBody(msg.Content, msg.Role))
	b.WriteString("\n")

	if msg.Role == api.RoleAssistant && msg.FactCheckStatus != api.FactCheckNone {
		b.WriteString(m.renderFactBadge(msg.FactCheckStatus, msg.ConfidenceScore))
		b.WriteString("\n")
	}
	return b.String()
}

// renderBody renders assistant markdown through glamour when enabled.
func (m *Model) renderBody(content string, role api.Role) string {
	if role == api.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	return content + "\n"
}

func (m *Model) renderFactBadge(status api.FactCheckStatus, confidence *float64) string {
	var badge string
	switch status {
	case api.FactCheckApproved:
		badge = m.theme.FactApproved.Render("✓ verified")
	case api.FactCheckCorrected:
		badge = m.theme.FactCorrected.Render("± corrected")
	case api.FactCheckFlagged:
		badge = m.theme.FactFlagged.Render("! flagged")
	default:
		badge = m.theme.FactPending.Render("… checking")
	}
	if confidence != nil {
		badge += m.theme.MessageTime.Render(fmt.Sprintf(" %.0f%%", *confidence*100))
	}
	return badge
}

// =============================================================================
// STREAMING PANEL
// =============================================================================

// renderStreamingPanel shows the live answer under the transcript: phase
// and progress, reasoning steps, web searches, sources, then the text.
func (m *Model) renderStreamingPanel() string {
	var b strings.Builder
	vm := m.vm

	b.WriteString(m.theme.AssistantLabel.Render("Agri-Bot"))
	b.WriteString("\n")

	if vm.IsStreaming {
		title := vm.PhaseTitle
		if title == "" {
			title = phaseLabel(vm.CurrentPhase)
		}
		b.WriteString(m.theme.PhaseTitle.Render(title))
		b.WriteString("  ")
		b.WriteString(m.renderProgressBar(vm.Progress))
		b.WriteString("\n")
	}

	if m.cfg.UI.ShowReasoning {
		for _, step := range vm.ReasoningSteps {
			if !step.Present {
				continue
			}
			mark := m.theme.StepActive.Render("◦ " + step.Step)
			if step.Completed {
				mark = m.theme.StepDone.Render("✓ " + step.Step)
			}
			b.WriteString("  " + mark + "\n")
		}
	}

	for _, q := range vm.WebSearchQueries {
		b.WriteString("  " + m.theme.SearchQuery.Render("🔎 "+q.Query) + "\n")
	}

	if m.cfg.UI.ShowSources && len(vm.Sources) > 0 {
		b.WriteString(m.renderSources(vm.Sources))
	}

	if vm.StreamingText != "" {
		b.WriteString(m.renderBody(vm.StreamingText, api.RoleAssistant))
	}

	if vm.Terminal && vm.Error == "" && vm.FactCheckStatus != api.FactCheckNone {
		b.WriteString(m.renderFactBadge(vm.FactCheckStatus, &vm.Confidence))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderProgressBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := int(progress / 100 * progressBarWidth)
	bar := m.theme.ProgressDone.Render(strings.Repeat("█", filled)) +
		m.theme.ProgressTodo.Render(strings.Repeat("░", progressBarWidth-filled))
	return bar + m.theme.StatusValue.Render(fmt.Sprintf(" %3.0f%%", progress))
}

func (m *Model) renderSources(sources []stream.Source) string {
	var b strings.Builder
	b.WriteString("  " + m.theme.StatusKey.Render("Sources") + "\n")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		b.WriteString(fmt.Sprintf("  %d. %s %s\n",
			i+1,
			m.theme.SourceTitle.Render(util.TruncateDisplay(title, m.width-20)),
			m.theme.SourceSnippet.Render(fmt.Sprintf("(%.0f%%)", src.Confidence*100)),
		))
	}
	return b.String()
}

// phaseLabel maps a wire phase to a friendly label.
func phaseLabel(p stream.Phase) string {
	switch p {
	case stream.PhaseInitializing:
		return "Understanding your question"
	case stream.PhaseRetrieval:
		return "Searching agricultural knowledge"
	case stream.PhaseReasoning:
		return "Reasoning"
	case stream.PhaseWebSearch:
		return "Searching the web"
	case stream.PhaseFactCheck:
		return "Fact-checking the answer"
	case stream.PhaseResponding:
		return "Writing the answer"
	case stream.PhaseDone:
		return "Done"
	default:
		return "Working"
	}
}
