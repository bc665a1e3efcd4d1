// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package config provides configuration loading and management for agribot.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides, loaded from ~/.agribot/config.toml (or an explicit path).
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Akshat-jwr/agribot-tui/internal/util"
)

// Transport selection modes.
const (
	TransportAuto     = "auto"
	TransportPush     = "push"
	TransportFallback = "fallback"
)

// Languages the backend accepts for language_preference.
var Languages = []string{
	"english", "hindi", "punjabi", "bengali", "tamil", "telugu",
	"kannada", "malayalam", "gujarati", "marathi", "odia", "bhojpuri",
	"hinglish", "punglish", "bengalish",
}

var titleCaser = cases.Title(language.Und)

// DisplayLanguage renders a language preference for the status bar.
func DisplayLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	return titleCaser.String(lang)
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete agribot configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Stream StreamConfig `toml:"stream"`
	Chat   ChatConfig   `toml:"chat"`
	UI     UIConfig     `toml:"ui"`
}

// ServerConfig locates the Agri-Bot backend.
type ServerConfig struct {
	// URL is the backend base URL.
	URL string `toml:"url"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
}

// StreamConfig tunes the streaming session.
type StreamConfig struct {
	// Transport is "auto", "push" or "fallback". Auto prefers SSE and
	// degrades to the blocking endpoint when the connection cannot be
	// established.
	Transport string `toml:"transport"`
	// IdleTimeoutSecs is the watchdog bound between events; 0 disables it.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// WordDelayMs paces the fallback transport's simulated replay.
	WordDelayMs int `toml:"word_delay_ms"`
}

// ChatConfig holds conversation preferences.
type ChatConfig struct {
	// Language is the language_preference for new sessions.
	Language string `toml:"language"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	// Markdown toggles glamour rendering of assistant messages.
	Markdown bool `toml:"markdown"`
	// ShowSources toggles the sources panel under answers.
	ShowSources bool `toml:"show_sources"`
	// ShowReasoning toggles the live reasoning-step list while streaming.
	ShowReasoning bool `toml:"show_reasoning"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "http://localhost:8000",
			TimeoutSecs: 60,
		},
		Stream: StreamConfig{
			Transport:       TransportAuto,
			IdleTimeoutSecs: 120,
			WordDelayMs:     40,
		},
		Chat: ChatConfig{
			Language: "english",
		},
		UI: UIConfig{
			Markdown:      true,
			ShowSources:   true,
			ShowReasoning: true,
		},
	}
}

// IdleTimeout returns the watchdog bound as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Stream.IdleTimeoutSecs) * time.Second
}

// WordDelay returns the fallback replay pacing as a duration.
func (c *Config) WordDelay() time.Duration {
	return time.Duration(c.Stream.WordDelayMs) * time.Millisecond
}

// =============================================================================
// LOADING
// =============================================================================

// Dir returns the agribot home directory (~/.agribot), creating it if
// missing.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".agribot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, layering file values and environment
// overrides on the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers AGRIBOT_* environment overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AGRIBOT_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("AGRIBOT_TRANSPORT"); v != "" {
		cfg.Stream.Transport = v
	}
	if v := os.Getenv("AGRIBOT_LANGUAGE"); v != "" {
		cfg.Chat.Language = v
	}
	if v := os.Getenv("AGRIBOT_IDLE_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Stream.IdleTimeoutSecs = secs
		}
	}
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.url %q is not a valid http(s) URL", c.Server.URL)
	}

	switch c.Stream.Transport {
	case TransportAuto, TransportPush, TransportFallback:
	default:
		return fmt.Errorf("stream.transport %q must be auto, push or fallback", c.Stream.Transport)
	}

	if c.Stream.IdleTimeoutSecs < 0 {
		return fmt.Errorf("stream.idle_timeout_secs must be >= 0")
	}
	if c.Server.TimeoutSecs <= 0 {
		return fmt.Errorf("server.timeout_secs must be > 0")
	}

	if !validLanguage(c.Chat.Language) {
		return fmt.Errorf("chat.language %q is not supported by the backend", c.Chat.Language)
	}
	return nil
}

func validLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Save writes the config atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o644)
}
