package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-i int      online check interval in seconds
//	-f string   local database file
//	-w string   websocket notification hub address ("" disables it)
//	-l string   log file
//	-d int      debounce interval in milliseconds
//	-s int      full sync max age in hours
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-f", "-w", "-l", "-d", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.NotifyAddr, "w", cfg.NotifyAddr, "websocket notification address")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	debounce := fs.Int("d", int(cfg.DebounceInterval.Milliseconds()), "debounce interval (in milliseconds)")
	fullSyncAge := fs.Int("s", int(cfg.FullSyncMaxAge.Hours()), "full sync max age (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.DebounceInterval = time.Duration(*debounce) * time.Millisecond
	cfg.FullSyncMaxAge = time.Duration(*fullSyncAge) * time.Hour
}
