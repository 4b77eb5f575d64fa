package config

import "time"

// Config holds runtime settings for the MediKeep client.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - DatabaseFile: path of the on-device sqlite database.
//   - PushInterval: how often the sync engine pushes dirty rows.
//   - RequestTimeout: per-request timeout for backend calls.
//   - RemindersEnabled: whether intake reminders are scheduled.
type Config struct {
	ServerBaseURL    string
	DatabaseFile     string
	PushInterval     time.Duration
	RequestTimeout   time.Duration
	RemindersEnabled bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseFile = "medikeep.db"
	c.PushInterval = 30 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.RemindersEnabled = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
