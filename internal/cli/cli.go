// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"os"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	Server   string // --server URL override
	Language string // --language override
	Verbose  bool

	// Remaining args after the command word, for subcommand handlers.
	Raw []string
}

const usageText = `agribot - terminal client for the Agri-Bot agricultural assistant

Ask farming questions in 15 Indian languages and watch the answer
stream in with live fact-checking against agricultural sources.

Usage:
  agribot                       Start the chat TUI (default)
  agribot login                 Log in and store credentials
  agribot register              Create an account
  agribot logout                Forget stored credentials
  agribot sessions [subcommand] Manage chat sessions
  agribot config [show|set]     Configuration
  agribot version               Show version
  agribot help                  Show this help

Session Commands:
  agribot sessions list         List your chat sessions
  agribot sessions show <id>    Print a session transcript
  agribot sessions delete <id>  Delete a session
    --confirm                   Required confirmation flag

Config Commands:
  agribot config show           Show effective configuration
  agribot config set <key> <value>
                                Set a value (server.url, chat.language,
                                stream.transport, ...)

Global Flags:
  --server URL                  Override the backend URL for this run
  --language NAME               Override the chat language for this run
  -v, --verbose                 Verbose output

Environment:
  AGRIBOT_SERVER_URL            Backend URL override
  AGRIBOT_LANGUAGE              Chat language override
  AGRIBOT_TRANSPORT             Streaming transport (auto|push|fallback)

Config file: ~/.agribot/config.toml
Credentials: ~/.agribot/credentials.json (token encrypted at rest)
`

// Usage prints help text to stdout.
func Usage() {
	fmt.Print(usageText)
}

// Parse interprets os.Args-style arguments (without the program name).
func Parse(raw []string) *Args {
	args := &Args{Command: CmdTUI}

	command := ""
	rest := raw
	if len(raw) > 0 && raw[0] != "" {
		switch {
		case raw[0][0] != '-':
			command = raw[0]
			rest = raw[1:]
		case raw[0] == "-V" || raw[0] == "--version":
			command = "version"
			rest = raw[1:]
		case raw[0] == "-h" || raw[0] == "--help":
			command = "help"
			rest = raw[1:]
		}
	}

	switch command {
	case "":
		args.Command = CmdTUI
	case "login":
		args.Command = CmdLogin
	case "register":
		args.Command = CmdRegister
	case "logout":
		args.Command = CmdLogout
	case "sessions", "session":
		args.Command = CmdSessions
	case "config":
		args.Command = CmdConfig
	case "version":
		args.Command = CmdVersion
	case "help":
		args.Command = CmdHelp
	default:
		fmt.Fprintf(os.Stderr, "agribot: unknown command %q\n\n", command)
		args.Command = CmdHelp
	}

	// Global flags can appear anywhere after the command word.
	parser := NewArgParser(rest)
	args.Server = parser.Flag("server")
	args.Language = parser.Flag("language", "lang")
	args.Verbose = parser.BoolFlag("verbose", "v")
	args.Raw = rest

	return args
}
