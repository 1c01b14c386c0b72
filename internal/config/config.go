package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "SCAMRADAR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	sandboxAPIKeyEnv  = "URLSCAN_API_KEY"
	brightDataKeyEnv  = "BRIGHTDATA_API_KEY"
	agentAPIKeyEnv    = "AGENT_API_KEY"
	whisperAPIKeyEnv  = "WHISPER_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Cache         CacheConfig        `yaml:"cache"`
	Queue         QueueConfig        `yaml:"queue"`
	Sandbox       SandboxConfig      `yaml:"sandbox"`
	BrightData    BrightDataConfig   `yaml:"brightdata"`
	Agent         AgentConfig        `yaml:"agent"`
	Transcriber   TranscriberConfig  `yaml:"transcriber"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CacheConfig bounds the fingerprint cache's disk and memory footprint.
type CacheConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
	MaxEntries    int    `yaml:"maxEntries"`
}

// Retention resolves the configured retention window.
func (c CacheConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// QueueConfig throttles the submission queue.
type QueueConfig struct {
	MinDelaySeconds int `yaml:"minDelaySeconds"`
}

// MinDelay resolves the minimum inter-submission delay.
func (c QueueConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySeconds) * time.Second
}

// SandboxConfig describes the sandbox scanning provider and poll policy.
type SandboxConfig struct {
	Endpoint            string `yaml:"endpoint"`
	APIKey              string `yaml:"apiKey"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
	MaxPollAttempts     int    `yaml:"maxPollAttempts"`
}

// PollInterval resolves the fixed poll interval.
func (c SandboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BrightDataConfig describes the scrape/reputation enrichment service.
type BrightDataConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"apiKey"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// AgentConfig defines how to contact the heuristic-agent API.
type AgentConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// TranscriberConfig describes the speech-to-text service.
type TranscriberConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// DatabaseConfig describes the optional Postgres assessment sink.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(sandboxAPIKeyEnv); v != "" {
		c.Sandbox.APIKey = v
	}

	if v := os.Getenv(brightDataKeyEnv); v != "" {
		c.BrightData.APIKey = v
	}

	if v := os.Getenv(agentAPIKeyEnv); v != "" {
		c.Agent.APIKey = v
	}

	if v := os.Getenv(whisperAPIKeyEnv); v != "" {
		c.Transcriber.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Cache.Path != "" {
		base.Cache.Path = override.Cache.Path
	}
	if override.Cache.RetentionDays > 0 {
		base.Cache.RetentionDays = override.Cache.RetentionDays
	}
	if override.Cache.MaxEntries > 0 {
		base.Cache.MaxEntries = override.Cache.MaxEntries
	}

	if override.Queue.MinDelaySeconds > 0 {
		base.Queue.MinDelaySeconds = override.Queue.MinDelaySeconds
	}

	if override.Sandbox.Endpoint != "" {
		base.Sandbox.Endpoint = override.Sandbox.Endpoint
	}
	if override.Sandbox.APIKey != "" {
		base.Sandbox.APIKey = override.Sandbox.APIKey
	}
	if override.Sandbox.PollIntervalSeconds > 0 {
		base.Sandbox.PollIntervalSeconds = override.Sandbox.PollIntervalSeconds
	}
	if override.Sandbox.MaxPollAttempts > 0 {
		base.Sandbox.MaxPollAttempts = override.Sandbox.MaxPollAttempts
	}

	if override.BrightData.Endpoint != "" {
		base.BrightData.Endpoint = override.BrightData.Endpoint
	}
	if override.BrightData.APIKey != "" {
		base.BrightData.APIKey = override.BrightData.APIKey
	}
	if override.BrightData.RequestsPerSecond > 0 {
		base.BrightData.RequestsPerSecond = override.BrightData.RequestsPerSecond
	}

	if override.Agent.Endpoint != "" {
		base.Agent.Endpoint = override.Agent.Endpoint
	}
	if override.Agent.Model != "" {
		base.Agent.Model = override.Agent.Model
	}
	if override.Agent.APIKey != "" {
		base.Agent.APIKey = override.Agent.APIKey
	}
	if override.Agent.SystemPrompt != "" {
		base.Agent.SystemPrompt = override.Agent.SystemPrompt
	}

	if override.Transcriber.Endpoint != "" {
		base.Transcriber.Endpoint = override.Transcriber.Endpoint
	}
	if override.Transcriber.APIKey != "" {
		base.Transcriber.APIKey = override.Transcriber.APIKey
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Cache: CacheConfig{
			Path:          "scan_history.json",
			RetentionDays: 30,
			MaxEntries:    10000,
		},
		Queue: QueueConfig{MinDelaySeconds: 2},
		Sandbox: SandboxConfig{
			Endpoint:            "https://urlscan.io",
			PollIntervalSeconds: 2,
			MaxPollAttempts:     15,
		},
		BrightData: BrightDataConfig{
			Endpoint:          "https://api.brightdata.com",
			RequestsPerSecond: 1,
		},
		Agent: AgentConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You classify URLs for scam likelihood.",
		},
		Transcriber: TranscriberConfig{
			Endpoint: "https://api.openai.com/v1/audio/transcriptions",
		},
		Database: DatabaseConfig{DSN: ""},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
	}
}
