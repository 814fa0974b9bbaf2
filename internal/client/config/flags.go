package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   server address (base URL or host:port)
//	-t string   transport, "http" or "grpc"
//	-d string   path of the local SQLite database
//	-i int      session check interval in seconds
//	-l string   log level
//
// Unknown flags are filtered out with flagx.FilterArgs so -c/-config can be
// handled separately. Invalid values panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address of the auth server")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: http or grpc")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	checkInterval := fs.Int("i", int(cfg.SessionCheckInterval.Seconds()), "session check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if cfg.Transport != TransportHTTP && cfg.Transport != TransportGRPC {
		panic(fmt.Sprintf("unknown transport %q", cfg.Transport))
	}
	if *checkInterval <= 0 {
		panic(fmt.Sprintf("session check interval must be positive, got %d", *checkInterval))
	}
	cfg.SessionCheckInterval = time.Duration(*checkInterval) * time.Second
}
