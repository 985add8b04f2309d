package config

import (
	"flag"

	"github.com/dmitrijs2005/timecaddy/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-r string     Redis address (host:port)
//	-e string     environment: development or production
//	-u string     public application URL used in email links
//	-t duration   request timeout (e.g., "5s")
//
// Arguments are filtered with flagx.FilterArgs first so that -c/-config and
// flags owned by other components do not break parsing.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-r", "-e", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.AppEnv, "e", config.AppEnv, "environment (development|production)")
	fs.StringVar(&config.AppURL, "u", config.AppURL, "public application URL")
	fs.DurationVar(&config.RequestTimeout, "t", config.RequestTimeout, "request timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
