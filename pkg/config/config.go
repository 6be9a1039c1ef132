// myclaw - personal AI assistant runtime
// License: MIT

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v11"

	"github.com/myclaw/myclaw/pkg/state"
)

type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	Logging   LoggingConfig   `json:"logging"`
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type AgentDefaults struct {
	Provider      string `json:"provider" env:"MYCLAW_AGENTS_DEFAULTS_PROVIDER"`
	Model         string `json:"model" env:"MYCLAW_AGENTS_DEFAULTS_MODEL"`
	BaseURL       string `json:"base_url" env:"MYCLAW_AGENTS_DEFAULTS_BASE_URL"`
	Workspace     string `json:"workspace" env:"MYCLAW_AGENTS_DEFAULTS_WORKSPACE"`
	MaxTokens     int    `json:"max_tokens" env:"MYCLAW_AGENTS_DEFAULTS_MAX_TOKENS"`
	MaxIterations int    `json:"max_iterations" env:"MYCLAW_AGENTS_DEFAULTS_MAX_ITERATIONS"`
	MaxRetries    int    `json:"max_retries" env:"MYCLAW_AGENTS_DEFAULTS_MAX_RETRIES"`

	// ToolResultMaxChars bounds tool output before it enters the transcript.
	// CompactToolResultMaxChars is the tighter cap applied by overflow
	// recovery. The two serve different purposes and are configured apart.
	ToolResultMaxChars        int `json:"tool_result_max_chars" env:"MYCLAW_AGENTS_DEFAULTS_TOOL_RESULT_MAX_CHARS"`
	CompactToolResultMaxChars int `json:"compact_tool_result_max_chars" env:"MYCLAW_AGENTS_DEFAULTS_COMPACT_TOOL_RESULT_MAX_CHARS"`
	CompactKeepRecent         int `json:"compact_keep_recent" env:"MYCLAW_AGENTS_DEFAULTS_COMPACT_KEEP_RECENT"`
}

// Profile is a single named credential used to authenticate to the provider.
// Profiles are tried in configuration order; on retriable failures the run
// rotates to the next available one.
type Profile struct {
	ID     string `json:"id"`
	APIKey string `json:"api_key"`
}

type ProvidersConfig struct {
	Profiles []Profile `json:"profiles"`
}

type ChannelsConfig struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Discord   DiscordConfig   `json:"discord"`
	Slack     SlackConfig     `json:"slack"`
	WebSocket WebSocketConfig `json:"websocket"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled" env:"MYCLAW_CHANNELS_TELEGRAM_ENABLED"`
	Token     string   `json:"token" env:"MYCLAW_CHANNELS_TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"MYCLAW_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type DiscordConfig struct {
	Enabled   bool     `json:"enabled" env:"MYCLAW_CHANNELS_DISCORD_ENABLED"`
	Token     string   `json:"token" env:"MYCLAW_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"MYCLAW_CHANNELS_DISCORD_ALLOW_FROM"`
}

type SlackConfig struct {
	Enabled   bool     `json:"enabled" env:"MYCLAW_CHANNELS_SLACK_ENABLED"`
	BotToken  string   `json:"bot_token" env:"MYCLAW_CHANNELS_SLACK_BOT_TOKEN"`
	AppToken  string   `json:"app_token" env:"MYCLAW_CHANNELS_SLACK_APP_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"MYCLAW_CHANNELS_SLACK_ALLOW_FROM"`
}

type WebSocketConfig struct {
	Enabled bool   `json:"enabled" env:"MYCLAW_CHANNELS_WEBSOCKET_ENABLED"`
	Host    string `json:"host" env:"MYCLAW_CHANNELS_WEBSOCKET_HOST"`
	Port    int    `json:"port" env:"MYCLAW_CHANNELS_WEBSOCKET_PORT"`
}

type HeartbeatConfig struct {
	Enabled bool   `json:"enabled" env:"MYCLAW_HEARTBEAT_ENABLED"`
	Cron    string `json:"cron" env:"MYCLAW_HEARTBEAT_CRON"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"MYCLAW_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Provider:                  "anthropic",
				Model:                     "claude-sonnet-4-5",
				MaxTokens:                 8192,
				MaxIterations:             25,
				MaxRetries:                3,
				ToolResultMaxChars:        50000,
				CompactToolResultMaxChars: 20000,
				CompactKeepRecent:         10,
			},
		},
		Heartbeat: HeartbeatConfig{
			Cron: "*/30 * * * *",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// WorkspacePath resolves the configured workspace, defaulting to
// <state root>/workspace.
func (c *Config) WorkspacePath() string {
	if c.Agents.Defaults.Workspace != "" {
		return c.Agents.Defaults.Workspace
	}
	return state.WorkspaceDir(state.Root())
}

// ConfigPath returns the config file location under the state root.
func ConfigPath() string {
	return filepath.Join(state.Root(), "config.json")
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv replaces ${VAR} references with environment values.
// Unset variables substitute to the empty string.
func substituteEnv(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRefPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Load reads the config file at path, applies ${VAR} substitution, merges it
// over the defaults, and finally applies MYCLAW_* environment overrides.
// A missing file yields the defaults (env overrides still apply).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(substituteEnv(data), cfg); jsonErr != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, jsonErr)
		}
	case os.IsNotExist(err):
		// first run, defaults only
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	return cfg, nil
}
