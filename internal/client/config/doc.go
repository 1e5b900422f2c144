// Package config loads runtime configuration for the PromptKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-f string   local database file
//	-w string   websocket notification hub address
//	-l string   log file
//	-d int      debounce interval (milliseconds)
//	-s int      full sync max age (hours)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "promptkeeper.db",
//	  "notify_addr": "127.0.0.1:8765",
//	  "log_file": "promptkeeper.log",
//	  "debounce_interval": "1s",
//	  "full_sync_max_age": "24h"
//	}
package config
