package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/wordchain/game"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	require.NoError(t, cfg.validate())
	assert.Equal(t, "127.0.0.1", cfg.bind)
	assert.Equal(t, 9001, cfg.port)
	assert.Equal(t, 12, cfg.targetWords)
	assert.Equal(t, "ws://127.0.0.1:9001/ws", cfg.server)
	assert.Equal(t, "http", cfg.scheme())

	ec := cfg.engineConfig()
	assert.Equal(t, 2*time.Minute, ec.InactivityTimeout)
	assert.Equal(t, game.SingleToken{}, ec.Policy)
}

func TestDefaultPolicyAcceptsLongWords(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	assert.NoError(t, cfg.engineConfig().Policy.Validate(strings.Repeat("a", 65)))

	cfg.maxWordLength = 64
	require.NoError(t, cfg.validate())
	assert.Error(t, cfg.engineConfig().Policy.Validate(strings.Repeat("a", 65)))
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("WORDCHAIN_PORT", "9100")
	t.Setenv("WORDCHAIN_TARGET_WORDS", "5")
	t.Setenv("WORDCHAIN_ROUND_TIMEOUT", "30s")
	t.Setenv("WORDCHAIN_NAME", "alice")

	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, 9100, cfg.port)
	assert.Equal(t, 5, cfg.targetWords)
	assert.Equal(t, 30*time.Second, cfg.roundTimeout)
	assert.Equal(t, "alice", cfg.name)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("WORDCHAIN_PORT", "9100")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9200"}))

	assert.Equal(t, 9200, cfg.port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port too low", func(c *Config) { c.port = 0 }},
		{"port too high", func(c *Config) { c.port = 70000 }},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }},
		{"unknown log format", func(c *Config) { c.logFormat = "xml" }},
		{"no target", func(c *Config) { c.targetWords = 0 }},
		{"negative limit", func(c *Config) { c.maxParticipants = -1 }},
		{"negative word length", func(c *Config) { c.maxWordLength = -1 }},
		{"zero outbox", func(c *Config) { c.outboxSize = 0 }},
		{"zero heartbeat", func(c *Config) { c.heartbeatTimeout = 0 }},
		{"negative round timeout", func(c *Config) { c.roundTimeout = -time.Second }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			newCmd(cfg)
			tc.modify(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateJoin(t *testing.T) {
	cfg := &Config{server: "wss://example.com/ws"}
	assert.NoError(t, cfg.validateJoin())

	cfg.server = "http://example.com/ws"
	assert.Error(t, cfg.validateJoin())
}
