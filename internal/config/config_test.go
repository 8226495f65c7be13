package config

import (
	"os"
	"path/filepath"
	"testing"

	"mtf-trader/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

const validConfig = `
[scheduler]
poll_seconds = 60

[feed]
bridge_url = "http://127.0.0.1:8787"

[[strategy]]
symbol = "EURUSD"
bias_timeframe = "H4"
entry_timeframe = "M15"

[[strategy]]
symbol = "GBPUSD"
bias_timeframe = "H1"
entry_timeframe = "M15"
digits = 5

[strategy.risk]
stop_loss = 2.0
take_profit_1 = 3.0
take_profit_2 = 5.0
take_profit_3 = 8.0
`

func TestLoad_ValidConfig(t *testing.T) {
	dir := writeConfig(t, validConfig)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scheduler.PollSeconds != 60 {
		t.Errorf("poll_seconds = %d, want 60", cfg.Scheduler.PollSeconds)
	}
	if cfg.Feed.HistoryBars != 1000 {
		t.Errorf("history_bars default = %d, want 1000", cfg.Feed.HistoryBars)
	}
	if cfg.Models.ConfidenceThreshold != 0.40 {
		t.Errorf("confidence_threshold default = %v, want 0.40", cfg.Models.ConfidenceThreshold)
	}
	if len(cfg.Strategies) != 2 {
		t.Fatalf("got %d strategies, want 2", len(cfg.Strategies))
	}

	// Defaults fill in for the first strategy.
	first := cfg.Strategies[0]
	if first.Digits != 5 {
		t.Errorf("default digits = %d, want 5", first.Digits)
	}
	if first.Risk != models.DefaultRiskMultipliers() {
		t.Errorf("default risk = %+v", first.Risk)
	}

	// Explicit risk survives for the second strategy.
	second := cfg.Strategies[1]
	if second.Risk.StopLoss != 2.0 || second.Risk.TakeProfit3 != 8.0 {
		t.Errorf("explicit risk lost: %+v", second.Risk)
	}
}

func TestLoad_MissingConfigWritesTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error when no config exists")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "config.toml")); statErr != nil {
		t.Fatalf("template not written: %v", statErr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, validConfig)
	t.Setenv("MT5_BRIDGE_URL", "http://10.0.0.1:9999")
	t.Setenv("TRADER_DB_PATH", "/tmp/override.db")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.BridgeURL != "http://10.0.0.1:9999" {
		t.Errorf("bridge url = %s, want env override", cfg.Feed.BridgeURL)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %s, want env override", cfg.Database.Path)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"missing bridge url", func(c *Config) { c.Feed.BridgeURL = "" }},
		{"zero poll", func(c *Config) { c.Scheduler.PollSeconds = 0 }},
		{"threshold above one", func(c *Config) { c.Models.ConfidenceThreshold = 1.5 }},
		{"same timeframes", func(c *Config) { c.Strategies[0].EntryTimeframe = "H4" }},
		{"bias faster than entry", func(c *Config) {
			c.Strategies[0].BiasTimeframe = "M15"
			c.Strategies[0].EntryTimeframe = "H1"
		}},
		{"unknown timeframe", func(c *Config) { c.Strategies[0].BiasTimeframe = "D1" }},
		{"missing symbol", func(c *Config) { c.Strategies[0].Symbol = "" }},
		{"duplicate strategy", func(c *Config) {
			c.Strategies = append(c.Strategies, c.Strategies[0])
		}},
		{"bad risk ladder", func(c *Config) {
			c.Strategies[0].Risk = models.RiskMultipliers{StopLoss: 1, TakeProfit1: 6, TakeProfit2: 4, TakeProfit3: 2}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, validConfig)
			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}
