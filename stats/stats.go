// Package stats tracks solver progress counters.
package stats

import (
	"fmt"
	"runtime"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gobblet/tablebase"
)

// SolverStats is owned by a single solver run.
type SolverStats struct {
	// PositionsEvaluated counts frames backtracked, i.e. positions whose
	// value was computed from their children.
	PositionsEvaluated uint64
	CacheHits          uint64
	TerminalPositions  uint64
	CycleDraws         uint64
	MaxDepth           int
	BranchesPruned     uint64

	P1Wins uint64
	P2Wins uint64
	Draws  uint64

	start            time.Time
	lastLog          time.Time
	lastLogPositions uint64
}

func New() *SolverStats {
	s := &SolverStats{}
	s.Start()
	return s
}

// Start resets the clocks without touching the counters.
func (s *SolverStats) Start() {
	now := time.Now()
	s.start = now
	s.lastLog = now
	s.lastLogPositions = s.PositionsEvaluated
}

func (s *SolverStats) RecordTerminal(o tablebase.Outcome) {
	s.TerminalPositions++
	switch o {
	case tablebase.WinP1:
		s.P1Wins++
	case tablebase.WinP2:
		s.P2Wins++
	case tablebase.Draw:
		s.Draws++
	}
}

func (s *SolverStats) RecordDepth(d int) {
	if d > s.MaxDepth {
		s.MaxDepth = d
	}
}

func (s *SolverStats) Elapsed() time.Duration {
	return time.Since(s.start)
}

func (s *SolverStats) PositionsPerSec() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.PositionsEvaluated) / secs
}

// PruningPct is the share of considered branches that were cut off.
func (s *SolverStats) PruningPct() float64 {
	total := s.PositionsEvaluated + s.BranchesPruned
	if total == 0 {
		return 0
	}
	return 100 * float64(s.BranchesPruned) / float64(total)
}

// MemoryUsage reports bytes obtained from the OS by the Go runtime and the
// system's free memory.
func MemoryUsage() (sys, free uint64) {
	ms := &runtime.MemStats{}
	runtime.ReadMemStats(ms)
	return ms.Sys, memory.FreeMemory()
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n uint64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n >= gb:
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	}
	return fmt.Sprintf("%d B", n)
}

// LogProgress emits one progress line. The rate is measured since the
// previous call.
func (s *SolverStats) LogProgress(tableSize int) {
	now := time.Now()
	rate := 0.0
	if secs := now.Sub(s.lastLog).Seconds(); secs > 0 {
		rate = float64(s.PositionsEvaluated-s.lastLogPositions) / secs
	}
	sys, free := MemoryUsage()
	log.Info().
		Str("elapsed", s.Elapsed().Truncate(time.Second).String()).
		Uint64("positions", s.PositionsEvaluated).
		Int("unique", tableSize).
		Uint64("cache-hits", s.CacheHits).
		Float64("rate", rate).
		Int("max-depth", s.MaxDepth).
		Float64("pruned-pct", s.PruningPct()).
		Uint64("p1-wins", s.P1Wins).
		Uint64("p2-wins", s.P2Wins).
		Uint64("draws", s.Draws).
		Uint64("cycles", s.CycleDraws).
		Str("mem", FormatBytes(sys)).
		Str("free-mem", FormatBytes(free)).
		Msg("solve-progress")
	s.lastLog = now
	s.lastLogPositions = s.PositionsEvaluated
}

// Summary is the end-of-run report.
type Summary struct {
	Result             string  `yaml:"result"`
	Elapsed            string  `yaml:"elapsed"`
	UniquePositions    int     `yaml:"unique-positions"`
	PositionsEvaluated uint64  `yaml:"positions-evaluated"`
	CacheHits          uint64  `yaml:"cache-hits"`
	TerminalPositions  uint64  `yaml:"terminal-positions"`
	P1Wins             uint64  `yaml:"p1-wins"`
	P2Wins             uint64  `yaml:"p2-wins"`
	Draws              uint64  `yaml:"draws"`
	CycleDraws         uint64  `yaml:"cycle-draws"`
	MaxDepth           int     `yaml:"max-depth"`
	BranchesPruned     uint64  `yaml:"branches-pruned"`
	AverageRate        float64 `yaml:"average-rate"`
}

func (s *SolverStats) Summary(result tablebase.Outcome, tableSize int) Summary {
	return Summary{
		Result:             result.String(),
		Elapsed:            s.Elapsed().Round(time.Millisecond).String(),
		UniquePositions:    tableSize,
		PositionsEvaluated: s.PositionsEvaluated,
		CacheHits:          s.CacheHits,
		TerminalPositions:  s.TerminalPositions,
		P1Wins:             s.P1Wins,
		P2Wins:             s.P2Wins,
		Draws:              s.Draws,
		CycleDraws:         s.CycleDraws,
		MaxDepth:           s.MaxDepth,
		BranchesPruned:     s.BranchesPruned,
		AverageRate:        s.PositionsPerSec(),
	}
}

func (s Summary) YAML() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
