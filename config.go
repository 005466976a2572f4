/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/Seednode/wordchain/game"
	"github.com/Seednode/wordchain/gateway"
)

type Config struct {
	bind             string
	heartbeatTimeout time.Duration
	logFormat        string
	maxParticipants  int
	maxWordLength    int
	otelEndpoint     string
	outboxSize       int
	port             int
	prefix           string
	previewInterval  time.Duration
	profile          bool
	queueSize        int
	queueTimeout     time.Duration
	roundTimeout     time.Duration
	targetWords      int
	tlsCert          string
	tlsKey           string
	verbose          bool
	version          bool

	// join
	name   string
	server string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.logFormat != "console" && c.logFormat != "json" {
		return fmt.Errorf("invalid log format (must be console or json): %q", c.logFormat)
	}
	if c.targetWords < 1 {
		return fmt.Errorf("invalid target word count (must be at least 1): %d", c.targetWords)
	}
	if c.maxParticipants < 0 {
		return fmt.Errorf("invalid participant limit (must be 0 or more): %d", c.maxParticipants)
	}
	if c.maxWordLength < 0 {
		return fmt.Errorf("invalid max word length (must be 0 or greater): %d", c.maxWordLength)
	}
	if c.outboxSize < 1 || c.queueSize < 1 {
		return errors.New("--outbox-size and --queue-size must be at least 1")
	}
	if c.heartbeatTimeout <= 0 {
		return fmt.Errorf("invalid heartbeat timeout (must be positive): %s", c.heartbeatTimeout)
	}
	if c.roundTimeout < 0 || c.previewInterval < 0 || c.queueTimeout < 0 {
		return errors.New("--round-timeout, --preview-interval and --queue-timeout cannot be negative")
	}
	return nil
}

func (c *Config) validateJoin() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server url (scheme must be ws or wss): %s", c.server)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) engineConfig() game.Config {
	return game.Config{
		TargetWordCount:   c.targetWords,
		InactivityTimeout: c.roundTimeout,
		PreviewInterval:   c.previewInterval,
		QueueSize:         c.queueSize,
		QueueTimeout:      c.queueTimeout,
		Policy:            game.SingleToken{MaxLength: c.maxWordLength},
	}
}

func (c *Config) gatewayConfig() gateway.Config {
	gc := gateway.DefaultConfig()
	gc.MaxParticipants = c.maxParticipants
	gc.HeartbeatTimeout = c.heartbeatTimeout
	gc.OutboxSize = c.outboxSize
	// Previews are coalesced to one per interval, so a client never needs
	// to send more than a few per interval.
	if c.previewInterval > 0 {
		gc.PreviewRate = rate.Every(c.previewInterval / 4)
	}
	return gc
}

func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WORDCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wordchain",
		Short:         "A turn-based game where players build a sentence one word at a time.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind to (env: WORDCHAIN_BIND)")
	fs.DurationVar(&cfg.heartbeatTimeout, "heartbeat-timeout", 60*time.Second, "time before silent connections are dropped (env: WORDCHAIN_HEARTBEAT_TIMEOUT)")
	fs.StringVar(&cfg.logFormat, "log-format", "console", "log output format, console or json (env: WORDCHAIN_LOG_FORMAT)")
	fs.IntVar(&cfg.maxParticipants, "max-participants", 0, "maximum concurrent connections, 0 for unlimited (env: WORDCHAIN_MAX_PARTICIPANTS)")
	fs.IntVar(&cfg.maxWordLength, "max-word-length", 0, "maximum characters per word, 0 for unlimited (env: WORDCHAIN_MAX_WORD_LENGTH)")
	fs.StringVar(&cfg.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint to export traces to (env: WORDCHAIN_OTEL_ENDPOINT)")
	fs.IntVar(&cfg.outboxSize, "outbox-size", 64, "messages buffered per connection before resyncing it (env: WORDCHAIN_OUTBOX_SIZE)")
	fs.IntVarP(&cfg.port, "port", "p", 9001, "port to listen on (env: WORDCHAIN_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: WORDCHAIN_PREFIX)")
	fs.DurationVar(&cfg.previewInterval, "preview-interval", 100*time.Millisecond, "minimum time between preview broadcasts (env: WORDCHAIN_PREVIEW_INTERVAL)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: WORDCHAIN_PROFILE)")
	fs.IntVar(&cfg.queueSize, "queue-size", 1024, "engine event queue capacity (env: WORDCHAIN_QUEUE_SIZE)")
	fs.DurationVar(&cfg.queueTimeout, "queue-timeout", 2*time.Second, "time to wait on a full event queue before exiting (env: WORDCHAIN_QUEUE_TIMEOUT)")
	fs.DurationVar(&cfg.roundTimeout, "round-timeout", 2*time.Minute, "idle time before a round is completed, 0 to disable (env: WORDCHAIN_ROUND_TIMEOUT)")
	fs.IntVar(&cfg.targetWords, "target-words", 12, "words per round (env: WORDCHAIN_TARGET_WORDS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: WORDCHAIN_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: WORDCHAIN_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: WORDCHAIN_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: WORDCHAIN_VERSION)")

	bindEnv(newViper(), fs)

	cmd.AddCommand(newJoinCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("wordchain v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newJoinCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a running game from the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateJoin(); err != nil {
				return err
			}
			return runClient(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.name, "name", "n", "", "display name (env: WORDCHAIN_NAME)")
	fs.StringVarP(&cfg.server, "server", "s", "ws://127.0.0.1:9001/ws", "websocket url of the server (env: WORDCHAIN_SERVER)")

	bindEnv(newViper(), fs)

	return cmd
}
