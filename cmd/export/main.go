package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/tablebase"
)

const verifySamples = 1000

// Usage: export [flags] [checkpoint]
//
// Converts a checkpoint into a SQLite tablebase at sqlite-path and spot
// checks the result.
func main() {
	cfg := &config.Config{}
	args, err := cfg.Load("export", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.GetBool(config.KeyDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := cfg.CheckpointPath()
	if len(args) > 0 {
		src = args[0]
	}
	if err := export(ctx, src, cfg.SQLitePath(), cfg.GetInt(config.KeyExportBatchSize)); err != nil {
		log.Err(err).Msg("export-failed")
		os.Exit(1)
	}
}

func export(ctx context.Context, src, dst string, batchSize int) error {
	entries, err := checkpoint.Load(src)
	if err != nil {
		return err
	}
	log.Info().Int("positions", len(entries)).Str("path", src).Msg("checkpoint-loaded")

	if err := tablebase.ExportSQLite(ctx, dst, entries, batchSize); err != nil {
		return err
	}

	db, err := tablebase.OpenSQLite(dst)
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := db.Count(ctx)
	if err != nil {
		return err
	}
	if n != len(entries) {
		return fmt.Errorf("database has %d rows, checkpoint has %d entries", n, len(entries))
	}
	mismatches, err := db.Verify(ctx, entries, verifySamples)
	if err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d of %d sampled positions do not match", mismatches, verifySamples)
	}
	log.Info().Int("rows", n).Int("verified", min(verifySamples, n)).Str("path", dst).
		Msg("export-verified")
	return nil
}
