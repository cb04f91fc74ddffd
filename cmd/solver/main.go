package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/solver"
	"github.com/domino14/gobblet/tablebase"
)

var (
	GitVersion string
)

// Usage: solver [flags] [encoding]
//
// Solves the initial position, or the given packed position, resuming from
// the checkpoint when one is present. SIGINT or SIGTERM stops the solve and
// saves the checkpoint; run again to resume.
func main() {
	cfg := &config.Config{}
	args, err := cfg.Load("solver", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	var logger zerolog.Logger
	if cfg.GetBool(config.KeyDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
	log.Info().Str("version", GitVersion).Interface("settings", cfg.SanitizedSettings()).
		Msg("loaded-config")

	if err := run(cfg, args); err != nil {
		log.Err(err).Msg("solver-failed")
		os.Exit(1)
	}
}

func rootPosition(args []string) (board.Board, error) {
	if len(args) == 0 {
		return board.New(), nil
	}
	v, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", board.ErrInvalidEncoding, err)
	}
	return board.Decode(v)
}

// loadCheckpoint fills t from path. A missing or corrupt checkpoint is not
// fatal; the solve starts fresh.
func loadCheckpoint(path string, t *tablebase.Table) {
	n, err := checkpoint.LoadInto(path, t)
	switch {
	case err == nil:
		log.Info().Int("positions", n).Str("path", path).Msg("checkpoint-loaded")
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", path).Msg("no-checkpoint-starting-fresh")
	default:
		log.Warn().Err(err).Str("path", path).Msg("checkpoint-unusable-starting-fresh")
	}
}

func run(cfg *config.Config, args []string) error {
	root, err := rootPosition(args)
	if err != nil {
		return err
	}
	if p := cfg.GetString(config.KeyCPUProfile); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	path := cfg.CheckpointPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	table := tablebase.NewForMemory(cfg.GetFloat64(config.KeyTableMemoryFraction))
	loadCheckpoint(path, table)

	s := &solver.Solver{}
	s.Init(table)
	s.SetPruning(cfg.GetBool(config.KeyPrune))
	s.SetCheckpoint(path, cfg.GetDuration(config.KeyCheckpointInterval))
	s.SetLogInterval(cfg.GetDuration(config.KeyLogInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	g.Go(func() error {
		select {
		case <-sig:
			log.Info().Msg("got quit signal, saving checkpoint...")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	var result tablebase.Outcome
	g.Go(func() error {
		defer cancel()
		var err error
		result, err = s.Solve(gctx, root)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if result == tablebase.Unknown {
		log.Info().Str("path", path).Msg("solve-interrupted-run-again-to-resume")
		return nil
	}
	if _, err := s.SaveCheckpoint(); err != nil {
		return fmt.Errorf("saving final checkpoint: %w", err)
	}

	summary, err := s.Stats().Summary(result, table.Len()).YAML()
	if err != nil {
		return err
	}
	fmt.Print(summary)

	if p := cfg.GetString(config.KeyMemProfile); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		memstats := &runtime.MemStats{}
		runtime.ReadMemStats(memstats)
		log.Info().Interface("memstats", memstats).Msg("memory-stats")
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		log.Info().Msg("wrote memory profile")
	}
	return nil
}
