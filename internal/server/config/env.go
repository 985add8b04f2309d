package config

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// envLookuper is a seam for tests.
var envLookuper envconfig.Lookuper = envconfig.OsLookuper()

// parseEnv loads dotenvPath into the process environment (existing variables
// win) and then overlays every variable named in the Config env tags.
// A missing dotenv file is not an error; a malformed one or an unparsable
// variable panics, like the JSON overlay.
func parseEnv(config *Config, dotenvPath string) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := envconfig.ProcessWith(context.Background(), config, envLookuper); err != nil {
		panic(err)
	}
}
