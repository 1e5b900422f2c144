package config

import (
	"github.com/dmitrijs2005/promptkeeper/internal/flagx"
	"github.com/dmitrijs2005/promptkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	NotifyAddr          *string        `json:"notify_addr"`
	LogFile             string         `json:"log_file"`
	DebounceInterval    timex.Duration `json:"debounce_interval"`
	FullSyncMaxAge      timex.Duration `json:"full_sync_max_age"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// with -c or -config. Fields missing from the file keep their current
// value; notify_addr may be set to "" explicitly to disable the hub.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig
	if err := flagx.LoadJSON(jsonConfigFile, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.NotifyAddr != nil {
		cfg.NotifyAddr = *jc.NotifyAddr
	}
	if jc.LogFile != "" {
		cfg.LogFile = jc.LogFile
	}
	if jc.DebounceInterval.Duration > 0 {
		cfg.DebounceInterval = jc.DebounceInterval.Duration
	}
	if jc.FullSyncMaxAge.Duration > 0 {
		cfg.FullSyncMaxAge = jc.FullSyncMaxAge.Duration
	}
}
