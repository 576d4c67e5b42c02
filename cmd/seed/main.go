// cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"libracirc/internal/platform/config"
	"libracirc/internal/platform/logger"
	"libracirc/internal/seed"
	"libracirc/internal/storage"
)

func main() {
	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "circulation-seed"
	}
	logger.Init(opts)
	log := logger.Named("seed")

	cfg := config.New().Prefix("CIRC_")
	dir := flag.String("dir", "seed", "directory of loan policy, schedule and rule documents")
	driver := flag.String("driver", cfg.MayEnum("STORE_DRIVER", storage.DriverSQLite, storage.DriverPostgres, storage.DriverPgx, storage.DriverSQLite), "store driver")
	dsn := flag.String("dsn", cfg.MayString("DATABASE_URL", "file:circulation.db?_journal_mode=WAL"), "store connection string")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, *driver, *dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", *driver).Msg("failed to open store")
	}
	defer db.Close()

	sum, err := seed.LoadDir(ctx, os.DirFS(*dir), storage.NewStore(db))
	if err != nil {
		log.Error().Err(err).Str("dir", *dir).Msg("seeding failed")
		os.Exit(1)
	}
	log.Info().
		Str("dir", *dir).
		Int("loan_policies", sum[seed.KindLoanPolicy]).
		Int("schedules", sum[seed.KindSchedule]).
		Int("rules", sum[seed.KindRule]).
		Msg("seed complete")
}
