package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

# IANA timezone the session and kill zone tables are expressed in
timezone = "UTC"

[log]
# Level: debug, info, warn, error, disabled
level = "info"
console = true
# Rotating log file (defaults to logs/journal.log next to this file)
file = false
max_size = 50
max_backups = 5
max_age = 30

[store]
# SQLite database file (defaults to journal.db next to this file)
# path = "/path/to/journal.db"

[cache]
# Share computed trade metrics through Redis
enabled = false
# In-process memo size (0 disables it)
memory_entries = 10000
ttl = "24h"

[cache.redis]
address = "localhost:6379"
password = ""
db = 0
pool_size = 10
prefix = "journal:metrics:"

[cache.redis.breaker]
# Consecutive failures before Redis is bypassed
failure_threshold = 3
success_threshold = 1
cooldown = "30s"

[engine]
# Periodic alerts run every N live trades
alert_interval = 10
# Minimum length of the lessons learned text to earn points
lessons_min_length = 20
# Batch recomputation workers (0 = one per CPU)
workers = 0

[engine.bands]
# Discipline score color thresholds
green = 75.0
yellow = 50.0

[engine.tilt_weights]
# Must sum to 1
score = 0.25
sentiment = 0.25
custom_field = 0.10
realized_r = 0.15
outcome = 0.15
pnl = 0.10

[engine.r_caps]
# Realized R at which the R component is neutral, +1 and -1
pivot = 1.5
upper = 3.0
lower = -1.0

# Sessions and kill zones in "HH:MM". A window whose end is before its start
# wraps past midnight. Leave both empty for the built-in forex tables.
#
# [[sessions]]
# name = "London"
# start = "07:00"
# end = "16:00"
#
# [[zones]]
# name = "London Kill Zone"
# start = "07:00"
# end = "10:00"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
