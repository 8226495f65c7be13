// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"mtf-trader/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Feed          FeedConfig         `mapstructure:"feed"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Models        ModelsConfig       `mapstructure:"models"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Strategies    []StrategyConfig   `mapstructure:"strategy"`
}

// SchedulerConfig holds control-loop configuration.
type SchedulerConfig struct {
	PollSeconds int `mapstructure:"poll_seconds"`
}

// FeedConfig holds market-data bridge configuration.
type FeedConfig struct {
	BridgeURL      string `mapstructure:"bridge_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	HistoryBars    int    `mapstructure:"history_bars"`
	EntryBars      int    `mapstructure:"entry_bars"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ModelsConfig holds classifier artifact configuration.
type ModelsConfig struct {
	Dir                 string  `mapstructure:"dir"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// StrategyConfig describes one symbol's bias/entry timeframe pair.
type StrategyConfig struct {
	Symbol         string                 `mapstructure:"symbol"`
	BiasTimeframe  string                 `mapstructure:"bias_timeframe"`
	EntryTimeframe string                 `mapstructure:"entry_timeframe"`
	Digits         int                    `mapstructure:"digits"`
	Risk           models.RiskMultipliers `mapstructure:"risk"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/mtf-trader"
	}
	return filepath.Join(home, ".config", "mtf-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createTemplateConfig(configDir); err != nil {
				return nil, fmt.Errorf("creating template config: %w", err)
			}
			return nil, fmt.Errorf("no config found; template written to %s/config.toml", configDir)
		}
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)
	applyStrategyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.poll_seconds", 60)
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("feed.history_bars", 1000)
	v.SetDefault("feed.entry_bars", 5)
	v.SetDefault("database.path", filepath.Join(DefaultConfigDir(), "trader.db"))
	v.SetDefault("models.dir", filepath.Join(DefaultConfigDir(), "models"))
	v.SetDefault("models.confidence_threshold", 0.40)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("MT5_BRIDGE_URL"); v != "" {
		cfg.Feed.BridgeURL = v
	}
	if v := os.Getenv("TRADER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

func applyStrategyDefaults(cfg *Config) {
	for i := range cfg.Strategies {
		s := &cfg.Strategies[i]
		if s.Digits == 0 {
			s.Digits = 5
		}
		if s.Risk == (models.RiskMultipliers{}) {
			s.Risk = models.DefaultRiskMultipliers()
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Scheduler.PollSeconds <= 0 {
		return fmt.Errorf("scheduler.poll_seconds must be positive")
	}
	if c.Feed.BridgeURL == "" {
		return fmt.Errorf("feed.bridge_url is required")
	}
	if c.Models.ConfidenceThreshold < 0 || c.Models.ConfidenceThreshold > 1 {
		return fmt.Errorf("models.confidence_threshold must be between 0 and 1")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one [[strategy]] block is required")
	}

	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Symbol == "" {
			return fmt.Errorf("strategy symbol is required")
		}
		biasTF, err := models.ParseTimeframe(s.BiasTimeframe)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", s.Symbol, err)
		}
		entryTF, err := models.ParseTimeframe(s.EntryTimeframe)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", s.Symbol, err)
		}
		if biasTF == entryTF {
			return fmt.Errorf("strategy %s: bias and entry timeframes must differ", s.Symbol)
		}
		if biasTF.Duration() <= entryTF.Duration() {
			return fmt.Errorf("strategy %s: bias timeframe %s must be slower than entry timeframe %s",
				s.Symbol, biasTF, entryTF)
		}
		if err := s.Risk.Validate(); err != nil {
			return fmt.Errorf("strategy %s: %w", s.Symbol, err)
		}
		key := s.Symbol + "/" + string(biasTF)
		if seen[key] {
			return fmt.Errorf("duplicate strategy for %s on %s", s.Symbol, biasTF)
		}
		seen[key] = true
	}

	return nil
}
