package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# MTF Trader Configuration

[scheduler]
# Control-loop polling cadence in seconds
poll_seconds = 60

[feed]
# MT5 gateway bridge endpoint
bridge_url = "http://127.0.0.1:8787"
# Timeout for each bridge call in seconds
timeout_seconds = 10
# Bars fetched for bias analysis
history_bars = 1000
# Bars fetched for entry confirmation
entry_bars = 5

[database]
# SQLite database path (defaults under the config directory)
# path = ""

[models]
# Directory holding <symbol>_<timeframe>.onnx artifacts and their
# .features.json sidecars
# dir = ""
# Minimum class probability for a directional signal
confidence_threshold = 0.40

[notifications]
enabled = false
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
level = "info"
console = true
file = true

# One block per traded symbol. Risk multipliers are ATR multiples
# anchored at the pullback level; take-profits must be increasing.
[[strategy]]
symbol = "EURUSD"
bias_timeframe = "H1"
entry_timeframe = "M15"
digits = 5

[strategy.risk]
stop_loss = 1.5
take_profit_1 = 2.0
take_profit_2 = 4.0
take_profit_3 = 6.0
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
