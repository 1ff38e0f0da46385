package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Chat    ChatConfig    `json:"chat"`
	Typing  TypingConfig  `json:"typing"`
	State   StateConfig   `json:"state"`
	Sweeper SweeperConfig `json:"sweeper"`
	Log     LogConfig     `json:"log"`
}

type ChatConfig struct {
	// RetentionLimit caps how many messages each session keeps in memory.
	RetentionLimit int `env:"PARTYLINE_CHAT_RETENTION_LIMIT" json:"retention_limit"`
	// SnapshotMessageLimit caps how many messages per session go to disk.
	SnapshotMessageLimit int `env:"PARTYLINE_CHAT_SNAPSHOT_MESSAGE_LIMIT" json:"snapshot_message_limit"`
}

type TypingConfig struct {
	TTLSeconds int `env:"PARTYLINE_TYPING_TTL_SECONDS" json:"ttl_seconds"`
	MinSeconds int `env:"PARTYLINE_TYPING_MIN_SECONDS" json:"min_seconds"`
}

type StateConfig struct {
	// Path is where the chat snapshot is persisted between runs.
	Path string `env:"PARTYLINE_STATE_PATH" json:"path"`
}

type SweeperConfig struct {
	Enabled bool `env:"PARTYLINE_SWEEPER_ENABLED" json:"enabled"`
	// Schedule is a cron expression controlling typing prune and autosave.
	Schedule string `env:"PARTYLINE_SWEEPER_SCHEDULE" json:"schedule"`
}

type LogConfig struct {
	Debug bool `env:"PARTYLINE_LOG_DEBUG" json:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			RetentionLimit:       100,
			SnapshotMessageLimit: 50,
		},
		Typing: TypingConfig{
			TTLSeconds: 6,
			MinSeconds: 3,
		},
		State: StateConfig{
			Path: "~/.partyline/state.json",
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Schedule: "* * * * *",
		},
	}
}

func (t TypingConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

func (t TypingConfig) Min() time.Duration {
	return time.Duration(t.MinSeconds) * time.Second
}

func (c *Config) StatePath() string {
	return expandHome(c.State.Path)
}

func (c *Config) Validate() error {
	if c.Chat.RetentionLimit <= 0 {
		return fmt.Errorf("chat.retention_limit must be positive, got %d", c.Chat.RetentionLimit)
	}
	if c.Chat.SnapshotMessageLimit <= 0 {
		return fmt.Errorf("chat.snapshot_message_limit must be positive, got %d", c.Chat.SnapshotMessageLimit)
	}
	if c.Typing.TTLSeconds <= 0 || c.Typing.MinSeconds <= 0 {
		return fmt.Errorf("typing ttl and min must be positive, got ttl=%d min=%d",
			c.Typing.TTLSeconds, c.Typing.MinSeconds)
	}
	if c.Typing.MinSeconds > c.Typing.TTLSeconds {
		return fmt.Errorf("typing.min_seconds (%d) exceeds typing.ttl_seconds (%d)",
			c.Typing.MinSeconds, c.Typing.TTLSeconds)
	}
	if c.Sweeper.Enabled && !gronx.IsValid(c.Sweeper.Schedule) {
		return fmt.Errorf("invalid sweeper.schedule %q", c.Sweeper.Schedule)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
