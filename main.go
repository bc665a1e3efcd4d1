// agribot - a terminal client for the Agri-Bot agricultural assistant.
//
// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akshat-jwr/agribot-tui/internal/api"
	"github.com/Akshat-jwr/agribot-tui/internal/cli"
	"github.com/Akshat-jwr/agribot-tui/internal/config"
	"github.com/Akshat-jwr/agribot-tui/internal/credentials"
	"github.com/Akshat-jwr/agribot-tui/internal/history"
	"github.com/Akshat-jwr/agribot-tui/internal/store"
	"github.com/Akshat-jwr/agribot-tui/internal/stream"
	"github.com/Akshat-jwr/agribot-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	args := cli.Parse(os.Args[1:])

	dir, err := config.Dir()
	if err != nil {
		fatal(err)
	}
	configPath := filepath.Join(dir, "config.toml")

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	applyOverrides(cfg, args)

	app := &cli.App{
		Config:     cfg,
		ConfigPath: configPath,
		Creds:      credentials.NewStore(dir),
		Out:        os.Stdout,
	}

	// Local transcript cache; absence just disables the offline paths.
	var cache *history.Cache
	if c, err := history.Open(filepath.Join(dir, "history.db")); err == nil {
		cache = c
		app.History = c
		defer c.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch args.Command {
	case cli.CmdTUI:
		runTUI(ctx, cfg, cache, app, args)
	case cli.CmdLogin:
		run(app.Login(ctx, args))
	case cli.CmdRegister:
		run(app.Register(ctx, args))
	case cli.CmdLogout:
		run(app.Logout(args))
	case cli.CmdSessions:
		run(app.Sessions(ctx, args))
	case cli.CmdConfig:
		run(app.ConfigCmd(args))
	case cli.CmdVersion:
		app.PrintVersion()
	case cli.CmdHelp:
		cli.Usage()
	}
}

// applyOverrides layers per-run flag overrides on the loaded config.
func applyOverrides(cfg *config.Config, args *cli.Args) {
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Language != "" {
		cfg.Chat.Language = args.Language
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
}

// runTUI wires credentials, REST client, store, streaming session and the
// Bubble Tea program together.
func runTUI(ctx context.Context, cfg *config.Config, cache *history.Cache, app *cli.App, args *cli.Args) {
	if !cli.IsTTY() {
		fatal(fmt.Errorf("the chat TUI needs an interactive terminal; see agribot help"))
	}

	// NO_COLOR and piped output degrade every style to plain text.
	lipgloss.SetColorProfile(cli.ColorProfile())

	creds, err := app.Creds.Load()
	if err != nil {
		fatal(fmt.Errorf("not logged in; run: agribot login"))
	}

	client := api.NewClient(cfg.Server.URL).WithToken(creds.Token)

	st := store.New(client, cfg.Chat.Language)
	if cache != nil {
		st = st.WithHistory(cache)
	}

	session := buildSession(cfg, client)
	if args.Verbose {
		// Stream diagnostics go to a file; stderr belongs to the TUI.
		logPath := filepath.Join(filepath.Dir(app.ConfigPath), "agribot.log")
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			session.WithLogger(log.New(f, "", log.LstdFlags))
		}
	}
	runner := chat.NewStreamRunner(session)

	model := chat.New(cfg, st, runner, creds.Token)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	runner.Attach(program)

	// Hot-reload language and UI preferences while the TUI runs.
	if watcher, err := config.NewWatcher(app.ConfigPath, func(next *config.Config) {
		cfg.Chat = next.Chat
		cfg.UI = next.UI
	}); err == nil {
		if watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		fatal(err)
	}
	session.Stop()
}

// buildSession assembles the streaming transport chain from config:
// auto prefers SSE with a blocking-POST fallback, push and fallback pin
// one transport.
func buildSession(cfg *config.Config, client *api.Client) *stream.Session {
	push := stream.NewPushTransport(cfg.Server.URL)
	fallback := stream.NewFallbackTransport(client).
		WithDelays(stream.DefaultPhaseDelay, cfg.WordDelay())

	var session *stream.Session
	switch cfg.Stream.Transport {
	case config.TransportPush:
		session = stream.NewSession(push)
	case config.TransportFallback:
		session = stream.NewSession(fallback)
	default:
		session = stream.NewSession(push).WithFallback(fallback)
	}
	return session.WithIdleTimeout(cfg.IdleTimeout())
}

func run(err error) {
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "agribot: %v\n", err)
	os.Exit(1)
}
