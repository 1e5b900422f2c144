package config

import "time"

// Config holds runtime settings for the PromptKeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DatabasePath: SQLite file holding prompts, metadata and the pending queue.
//   - NotifyAddr: listen address of the websocket notification hub; empty disables it.
//   - LogFile: rotating log file; the terminal is reserved for the REPL.
//   - DebounceInterval: per-record delay before an immediate remote write.
//   - FullSyncMaxAge: Sync falls back to a full sync once the last one is older.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	NotifyAddr          string
	LogFile             string
	DebounceInterval    time.Duration
	FullSyncMaxAge      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "promptkeeper.db"
	c.NotifyAddr = "127.0.0.1:8765"
	c.LogFile = "promptkeeper.log"
	c.DebounceInterval = time.Second
	c.FullSyncMaxAge = 24 * time.Hour
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
