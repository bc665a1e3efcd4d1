// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/config"
	"github.com/Akshat-jwr/agribot-tui/internal/credentials"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag value",
			args:    []string{"show", "--format", "json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--since=2026-01-01"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("since") != "2026-01-01" {
					t.Errorf("Flag(since) = %q, want %q", p.Flag("since"), "2026-01-01")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"delete", "sess-42", "--confirm"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("confirm") {
					t.Error("BoolFlag(confirm) should be true")
				}
				if p.Positional(1) != "sess-42" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "sess-42")
				}
			},
		},
		{
			name:    "explicit boolean value",
			args:    []string{"show", "--json=false"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be false")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"set", "chat.language", "hindi"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 3 {
					t.Errorf("PositionalCount() = %d, want 3", p.PositionalCount())
				}
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "chat.language hindi" {
					t.Errorf("PositionalFrom(1) joined = %q", joined)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

// =============================================================================
// COMMAND PARSING TESTS
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args starts TUI", []string{}, CmdTUI},
		{"login", []string{"login"}, CmdLogin},
		{"register", []string{"register"}, CmdRegister},
		{"logout", []string{"logout"}, CmdLogout},
		{"sessions", []string{"sessions", "list"}, CmdSessions},
		{"session alias", []string{"session"}, CmdSessions},
		{"config", []string{"config", "show"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
		{"unknown falls back to help", []string{"frobnicate"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := Parse(tt.args)
			if args.Command != tt.want {
				t.Errorf("Parse(%v).Command = %v, want %v", tt.args, args.Command, tt.want)
			}
		})
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	args := Parse([]string{"sessions", "list", "--server", "http://10.0.0.5:9000", "--language", "tamil", "-v"})

	if args.Command != CmdSessions {
		t.Fatalf("Command = %v, want CmdSessions", args.Command)
	}
	if args.Server != "http://10.0.0.5:9000" {
		t.Errorf("Server = %q", args.Server)
	}
	if args.Language != "tamil" {
		t.Errorf("Language = %q", args.Language)
	}
	if !args.Verbose {
		t.Error("Verbose should be true")
	}
}

// =============================================================================
// COMMAND HANDLER TESTS
// =============================================================================

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	app := &App{
		Config:     config.Default(),
		ConfigPath: filepath.Join(dir, "config.toml"),
		Creds:      credentials.NewStore(dir),
		Out:        &out,
	}
	return app, &out
}

func TestConfigSetAndShow(t *testing.T) {
	app, out := testApp(t)

	if err := app.configSet("chat.language", "marathi"); err != nil {
		t.Fatalf("configSet: %v", err)
	}
	if app.Config.Chat.Language != "marathi" {
		t.Errorf("language = %q, want marathi", app.Config.Chat.Language)
	}

	// The change was persisted.
	loaded, err := config.Load(app.ConfigPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Chat.Language != "marathi" {
		t.Errorf("persisted language = %q", loaded.Chat.Language)
	}

	out.Reset()
	if err := app.configShow(); err != nil {
		t.Fatalf("configShow: %v", err)
	}
	if !strings.Contains(out.String(), "marathi") {
		t.Errorf("show output missing language:\n%s", out.String())
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	app, _ := testApp(t)

	if err := app.configSet("chat.language", "klingon"); err == nil {
		t.Error("expected error for unsupported language")
	}
	if err := app.configSet("stream.transport", "carrier-pigeon"); err == nil {
		t.Error("expected error for unknown transport")
	}
	if err := app.configSet("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	// A failed set never persists a file.
	if _, err := config.Load(app.ConfigPath); err != nil {
		t.Fatalf("defaults should still load: %v", err)
	}
}

func TestSessionsDeleteRequiresConfirm(t *testing.T) {
	app, _ := testApp(t)

	args := Parse([]string{"sessions", "delete", "sess-1"})
	err := app.Sessions(t.Context(), args)
	if err == nil || !strings.Contains(err.Error(), "--confirm") {
		t.Errorf("expected confirmation error, got %v", err)
	}
}

func TestDetectProfileDegradesToAscii(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	if got := detectProfile(false); got != termenv.Ascii {
		t.Errorf("piped output profile = %v, want Ascii", got)
	}

	t.Setenv("NO_COLOR", "1")
	if got := detectProfile(true); got != termenv.Ascii {
		t.Errorf("NO_COLOR profile = %v, want Ascii", got)
	}
}

// fakeHistory is an in-memory HistoryCache.
type fakeHistory struct {
	sessions []api.ChatSession
	messages map[string][]api.ChatMessage
	deleted  []string
}

func (f *fakeHistory) Sessions() ([]api.ChatSession, error) { return f.sessions, nil }

func (f *fakeHistory) Messages(sessionID string) ([]api.ChatMessage, error) {
	msgs, ok := f.messages[sessionID]
	if !ok {
		return nil, errors.New("session not cached")
	}
	return msgs, nil
}

func (f *fakeHistory) DeleteSession(sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func TestSessionsListServesCacheOffline(t *testing.T) {
	// No stored token, so the backend call fails before any dial; the
	// command must serve the cached list instead of the error.
	app, out := testApp(t)
	app.History = &fakeHistory{sessions: []api.ChatSession{{
		ID:           "sess-1",
		Title:        "Wheat rust treatment",
		MessageCount: 4,
		UpdatedAt:    time.Now(),
	}}}

	if err := app.sessionsList(t.Context()); err != nil {
		t.Fatalf("sessionsList: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "cached") {
		t.Errorf("output missing offline notice:\n%s", got)
	}
	if !strings.Contains(got, "sess-1") || !strings.Contains(got, "Wheat rust treatment") {
		t.Errorf("output missing cached session:\n%s", got)
	}
}

func TestSessionsListOfflineWithoutCacheFails(t *testing.T) {
	app, _ := testApp(t)

	if err := app.sessionsList(t.Context()); err == nil {
		t.Error("expected the backend error with no cache attached")
	}

	// An empty cache does not mask the error either.
	app.History = &fakeHistory{}
	if err := app.sessionsList(t.Context()); err == nil {
		t.Error("expected the backend error with an empty cache")
	}
}

func TestSessionsShowServesCacheOffline(t *testing.T) {
	app, out := testApp(t)
	app.History = &fakeHistory{messages: map[string][]api.ChatMessage{
		"sess-1": {
			{SessionID: "sess-1", Role: api.RoleUser, Content: "How do I treat wheat rust?"},
			{SessionID: "sess-1", Role: api.RoleAssistant, Content: "Apply propiconazole early."},
		},
	}}

	if err := app.sessionsShow(t.Context(), "sess-1"); err != nil {
		t.Fatalf("sessionsShow: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "cached") {
		t.Errorf("output missing offline notice:\n%s", got)
	}
	if !strings.Contains(got, "propiconazole") {
		t.Errorf("output missing cached transcript:\n%s", got)
	}

	// Unknown session: the backend error wins.
	if err := app.sessionsShow(t.Context(), "sess-404"); err == nil {
		t.Error("expected error for a session missing from the cache")
	}
}

func TestSessionsDeletePurgesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	app, _ := testApp(t)
	app.Config.Server.URL = server.URL
	if err := app.Creds.Save(credentials.Credentials{Token: "tok", SavedAt: time.Now()}); err != nil {
		t.Fatalf("save creds: %v", err)
	}
	fake := &fakeHistory{}
	app.History = fake

	if err := app.sessionsDelete(t.Context(), "sess-9"); err != nil {
		t.Fatalf("sessionsDelete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "sess-9" {
		t.Errorf("cache purge = %v, want [sess-9]", fake.deleted)
	}
}
