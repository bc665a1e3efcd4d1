// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/config"
	"github.com/Akshat-jwr/agribot-tui/internal/credentials"
	"github.com/Akshat-jwr/agribot-tui/internal/util"
)

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HistoryCache is the local transcript cache the sessions commands fall back
// to when the backend is unreachable. *history.Cache satisfies it.
type HistoryCache interface {
	Sessions() ([]api.ChatSession, error)
	Messages(sessionID string) ([]api.ChatMessage, error)
	DeleteSession(sessionID string) error
}

// App groups the dependencies the non-interactive commands need.
type App struct {
	Config     *config.Config
	ConfigPath string
	Creds      *credentials.Store
	History    HistoryCache // nil when the cache could not be opened
	Out        io.Writer
}

// client builds an API client, attaching the stored token when present.
func (a *App) client() *api.Client {
	c := api.NewClient(a.Config.Server.URL)
	if creds, err := a.Creds.Load(); err == nil {
		c = c.WithToken(creds.Token)
	}
	return c
}

// Login prompts for credentials, exchanges them for a token and stores it.
func (a *App) Login(ctx context.Context, args *Args) error {
	if !IsTTY() {
		return fmt.Errorf("login requires an interactive terminal")
	}

	email, err := PromptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := PromptPassword("Password: ")
	if err != nil {
		return err
	}

	client := api.NewClient(a.Config.Server.URL)
	token, err := client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	err = a.Creds.Save(credentials.Credentials{
		ServerURL: a.Config.Server.URL,
		Email:     email,
		Token:     token.AccessToken,
		SavedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Fprintf(a.Out, "Logged in as %s\n", email)
	return nil
}

// Register creates an account, then logs in with the same credentials.
func (a *App) Register(ctx context.Context, args *Args) error {
	if !IsTTY() {
		return fmt.Errorf("register requires an interactive terminal")
	}

	email, err := PromptLine("Email: ")
	if err != nil {
		return err
	}
	name, err := PromptLine("Full name (optional): ")
	if err != nil {
		return err
	}
	password, err := PromptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := PromptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	client := api.NewClient(a.Config.Server.URL)
	if err := client.Register(ctx, email, password, name); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	token, err := client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("account created but login failed: %w", err)
	}

	err = a.Creds.Save(credentials.Credentials{
		ServerURL: a.Config.Server.URL,
		Email:     email,
		Token:     token.AccessToken,
		SavedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Fprintf(a.Out, "Account created; logged in as %s\n", email)
	return nil
}

// Logout forgets stored credentials.
func (a *App) Logout(args *Args) error {
	if err := a.Creds.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Logged out")
	return nil
}

// Sessions dispatches the sessions subcommands.
func (a *App) Sessions(ctx context.Context, args *Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list":
		return a.sessionsList(ctx)
	case "show":
		id := parser.Positional(1)
		if id == "" {
			return fmt.Errorf("usage: agribot sessions show <id>")
		}
		return a.sessionsShow(ctx, id)
	case "delete":
		id := parser.Positional(1)
		if id == "" {
			return fmt.Errorf("usage: agribot sessions delete <id> --confirm")
		}
		if !parser.BoolFlag("confirm") {
			return fmt.Errorf("deleting a session is permanent; re-run with --confirm")
		}
		return a.sessionsDelete(ctx, id)
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", parser.Subcommand())
	}
}

func (a *App) sessionsList(ctx context.Context) error {
	var sessions []api.ChatSession
	list, err := a.client().ListSessions(ctx, api.Page{})
	if err != nil {
		// Serve the local cache so the command still works offline.
		if a.History == nil {
			return err
		}
		cached, cacheErr := a.History.Sessions()
		if cacheErr != nil || len(cached) == 0 {
			return err
		}
		fmt.Fprintf(a.Out, "Backend unreachable (%v); showing cached sessions.\n\n", err)
		sessions = cached
	} else {
		sessions = list.Sessions
	}

	if len(sessions) == 0 {
		fmt.Fprintln(a.Out, "No sessions yet. Start one with: agribot")
		return nil
	}

	width := TerminalWidth()
	for _, s := range sessions {
		title := util.TruncateDisplay(s.Title, width-45)
		fmt.Fprintf(a.Out, "%-36s  %-3d msgs  %s  %s\n",
			s.ID, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"), title)
	}
	fmt.Fprintf(a.Out, "\n%d session(s)\n", len(sessions))
	return nil
}

func (a *App) sessionsShow(ctx context.Context, id string) error {
	messages, err := a.client().ListMessages(ctx, id, api.Page{})
	if err != nil {
		if a.History == nil {
			return err
		}
		cached, cacheErr := a.History.Messages(id)
		if cacheErr != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Backend unreachable (%v); showing cached transcript.\n\n", err)
		messages = cached
	}
	for _, m := range messages {
		speaker := "You"
		if m.Role == api.RoleAssistant {
			speaker = "Agri-Bot"
		}
		fmt.Fprintf(a.Out, "[%s] %s\n%s\n\n",
			m.CreatedAt.Local().Format("15:04"), speaker, m.Content)
		if m.FactCheckStatus != api.FactCheckNone {
			fmt.Fprintf(a.Out, "  fact check: %s\n\n", m.FactCheckStatus)
		}
	}
	return nil
}

func (a *App) sessionsDelete(ctx context.Context, id string) error {
	if err := a.client().DeleteSession(ctx, id); err != nil {
		return err
	}
	if a.History != nil {
		// Keep the offline view from resurrecting a deleted session.
		_ = a.History.DeleteSession(id)
	}
	fmt.Fprintf(a.Out, "Deleted session %s\n", id)
	return nil
}

// ConfigCmd dispatches the config subcommands.
func (a *App) ConfigCmd(args *Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		return a.configShow()
	case "set":
		key := parser.Positional(1)
		value := parser.Positional(2)
		if key == "" || value == "" {
			return fmt.Errorf("usage: agribot config set <key> <value>")
		}
		return a.configSet(key, value)
	default:
		return fmt.Errorf("unknown config subcommand: %s", parser.Subcommand())
	}
}

func (a *App) configShow() error {
	c := a.Config
	fmt.Fprintf(a.Out, "server.url               %s\n", c.Server.URL)
	fmt.Fprintf(a.Out, "server.timeout_secs      %d\n", c.Server.TimeoutSecs)
	fmt.Fprintf(a.Out, "stream.transport         %s\n", c.Stream.Transport)
	fmt.Fprintf(a.Out, "stream.idle_timeout_secs %d\n", c.Stream.IdleTimeoutSecs)
	fmt.Fprintf(a.Out, "stream.word_delay_ms     %d\n", c.Stream.WordDelayMs)
	fmt.Fprintf(a.Out, "chat.language            %s\n", c.Chat.Language)
	fmt.Fprintf(a.Out, "ui.markdown              %t\n", c.UI.Markdown)
	fmt.Fprintf(a.Out, "ui.show_sources          %t\n", c.UI.ShowSources)
	fmt.Fprintf(a.Out, "ui.show_reasoning        %t\n", c.UI.ShowReasoning)
	return nil
}

func (a *App) configSet(key, value string) error {
	c := a.Config
	switch key {
	case "server.url":
		c.Server.URL = value
	case "server.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		c.Server.TimeoutSecs = n
	case "stream.transport":
		c.Stream.Transport = value
	case "stream.idle_timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		c.Stream.IdleTimeoutSecs = n
	case "stream.word_delay_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		c.Stream.WordDelayMs = n
	case "chat.language":
		c.Chat.Language = strings.ToLower(value)
	case "ui.markdown", "ui.show_sources", "ui.show_reasoning":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		switch key {
		case "ui.markdown":
			c.UI.Markdown = b
		case "ui.show_sources":
			c.UI.ShowSources = b
		case "ui.show_reasoning":
			c.UI.ShowReasoning = b
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Save(a.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Set %s = %s\n", key, value)
	return nil
}

// PrintVersion prints version information.
func (a *App) PrintVersion() {
	fmt.Fprintf(a.Out, "agribot %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
