package config

import (
	"flag"
	"os"
	"time"

	"github.com/avoskresensky/fieldsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote API (default from Config)
//	-d string   path to the local replica database
//	-i int      online check interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the remote API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local replica database")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return
	}

	cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
}
