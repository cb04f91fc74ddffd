package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/analysis"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/tablebase"
)

const (
	canonicalSamples = 100000
	maxSamplePlies   = 40
	maxLinePlies     = 60
)

// Usage: tbstats [flags] [checkpoint]
//
// Prints statistics about a solved tablebase: outcome counts, a breakdown
// by pieces on the board, branching factors over random games, and a check
// that stored keys are canonical. With --distances it also computes how
// long every decided position takes to finish under perfect play.
func main() {
	cfg := &config.Config{}
	args, err := cfg.Load("tbstats", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.GetBool(config.KeyDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	src := cfg.CheckpointPath()
	if len(args) > 0 {
		src = args[0]
	}
	if err := report(cfg, src); err != nil {
		log.Err(err).Msg("tbstats-failed")
		os.Exit(1)
	}
}

func report(cfg *config.Config, src string) error {
	entries, err := checkpoint.Load(src)
	if err != nil {
		return err
	}
	log.Info().Int("positions", len(entries)).Str("path", src).Msg("checkpoint-loaded")

	r := analysis.Report{
		Outcomes:  analysis.OutcomeDistribution(entries),
		ByPieces:  analysis.ByPieces(entries),
		Branching: analysis.SampleBranching(cfg.GetInt(config.KeySampleGames), maxSamplePlies),
		Canonical: analysis.CheckCanonical(entries, canonicalSamples),
	}
	if cfg.GetBool(config.KeyDistances) {
		t := tablebase.New(len(entries))
		t.Merge(entries)
		d := analysis.ComputeDistances(t)
		r.Distances = analysis.SummarizeDistances(t, d, maxLinePlies)
	}

	switch cfg.GetString(config.KeyReportFormat) {
	case "yaml":
		out, err := r.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
	case "text":
		if err := r.WriteText(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Branching factor histogram:")
		if err := r.Branching.WriteHistogram(os.Stdout, 12, 60); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", cfg.GetString(config.KeyReportFormat))
	}
	return nil
}
