package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/accountctl"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/config"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
)

func main() {
	cfg := config.LoadConfig()

	// Only positional arguments matter here; config.LoadConfig already
	// consumed the flags.
	fs := flag.NewFlagSet("accountctl", flag.ExitOnError)
	fs.String("d", cfg.DatabaseDSN, "database DSN")
	fs.String("e", cfg.AppEnv, "environment (development|production)")
	fs.String("c", "", "path to JSON config")
	fs.String("config", "", "path to JSON config")
	_ = fs.Parse(os.Args[1:])

	if err := run(cfg, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string) error {
	ctx := context.Background()

	logger, err := logging.New(logging.Options{Development: cfg.IsDevelopment(), Out: os.Stderr})
	if err != nil {
		return err
	}

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	hasher := credentials.NewHasher(credentials.Params{
		Time:      cfg.Argon2Time,
		MemoryKiB: cfg.Argon2MemoryKiB,
		Threads:   cfg.Argon2Threads,
	})
	lc := accounts.NewLifecycle(db, rm, cfg.InactivityWindow, logger)

	admin := accountctl.NewAdmin(db, rm, lc, hasher, time.Now, logger)
	return accountctl.Run(ctx, admin, args, os.Stdout)
}
