// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.Server.URL)
	assert.Equal(t, TransportAuto, cfg.Stream.Transport)
	assert.Equal(t, "english", cfg.Chat.Language)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout())
	assert.True(t, cfg.UI.Markdown)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
url = "https://agribot.example.com"

[stream]
transport = "fallback"
idle_timeout_secs = 30
word_delay_ms = 10

[chat]
language = "hindi"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://agribot.example.com", cfg.Server.URL)
	assert.Equal(t, TransportFallback, cfg.Stream.Transport)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout())
	assert.Equal(t, 10*time.Millisecond, cfg.WordDelay())
	assert.Equal(t, "hindi", cfg.Chat.Language)

	// Sections absent from the file keep defaults.
	assert.Equal(t, 60, cfg.Server.TimeoutSecs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGRIBOT_SERVER_URL", "http://10.0.0.5:9000")
	t.Setenv("AGRIBOT_LANGUAGE", "punjabi")
	t.Setenv("AGRIBOT_TRANSPORT", "push")
	t.Setenv("AGRIBOT_IDLE_TIMEOUT_SECS", "15")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000", cfg.Server.URL)
	assert.Equal(t, "punjabi", cfg.Chat.Language)
	assert.Equal(t, TransportPush, cfg.Stream.Transport)
	assert.Equal(t, 15, cfg.Stream.IdleTimeoutSecs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero idle timeout disables watchdog", func(c *Config) { c.Stream.IdleTimeoutSecs = 0 }, true},
		{"bad url", func(c *Config) { c.Server.URL = "not a url" }, false},
		{"ftp scheme", func(c *Config) { c.Server.URL = "ftp://x" }, false},
		{"bad transport", func(c *Config) { c.Stream.Transport = "websocket" }, false},
		{"negative idle", func(c *Config) { c.Stream.IdleTimeoutSecs = -1 }, false},
		{"zero request timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }, false},
		{"unsupported language", func(c *Config) { c.Chat.Language = "klingon" }, false},
		{"transliterated language", func(c *Config) { c.Chat.Language = "hinglish" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.Language = "tamil"
	cfg.Stream.Transport = TransportPush
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDisplayLanguage(t *testing.T) {
	assert.Equal(t, "Hindi", DisplayLanguage("hindi"))
	assert.Equal(t, "Hinglish", DisplayLanguage("hinglish"))
	assert.Equal(t, "", DisplayLanguage(""))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Default().Save(path))

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(path, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	updated := Default()
	updated.Chat.Language = "bengali"
	require.NoError(t, updated.Save(path))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Chat.Language == "bengali"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherIgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Default().Save(path))

	var calls int
	var mu sync.Mutex
	w, err := NewWatcher(path, func(*Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[[[broken"), 0o644))
	time.Sleep(800 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}
