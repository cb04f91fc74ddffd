// Package solver computes exact game-theoretic values by exhaustive
// minimax over the Gobblet Gobblers game graph.
//
// The search is an iterative depth-first traversal over an explicit frame
// stack. A single board is mutated with Apply on the way down and Undo on
// the way back. Every fully resolved position is memoized under its
// canonical key in a tablebase.Table, so a search interrupted by context
// cancellation can be resumed from a checkpoint of that table: subtrees
// already resolved are short-circuited by lookup, and only the unfinished
// frontier is redone.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/stats"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

const (
	DefaultCheckpointInterval = 60 * time.Second
	DefaultLogInterval        = 5 * time.Second

	// clocks are consulted once every this many iterations.
	clockCheckEvery = 1 << 12
)

type frame struct {
	key     uint64
	undo    move.Undo
	hasUndo bool

	moves []move.Move
	idx   int

	mover    piece.Player
	best     tablebase.Outcome
	children int
}

// fold merges a child's value into f. P1 maximizes, P2 minimizes.
func (f *frame) fold(o tablebase.Outcome) {
	f.children++
	if tablebase.Better(f.mover, o, f.best) {
		f.best = o
	}
}

type Solver struct {
	table *tablebase.Table
	stats *stats.SolverStats
	gen   movegen.Generator

	prune              bool
	checkpointPath     string
	checkpointInterval time.Duration
	logInterval        time.Duration

	// move buffers, one per stack depth, reused across frames.
	moveBufs [][]move.Move
	// scratch for move ordering.
	wins, mids, losses []move.Move
}

// Init readies the solver to fill table. Pruning is on by default and no
// checkpoint path is set.
func (s *Solver) Init(table *tablebase.Table) {
	s.table = table
	s.stats = stats.New()
	s.prune = true
	s.checkpointPath = ""
	s.checkpointInterval = DefaultCheckpointInterval
	s.logInterval = DefaultLogInterval
	s.moveBufs = nil
}

// SetPruning toggles alpha-beta pruning with move ordering. Without it the
// solver visits every reachable position.
func (s *Solver) SetPruning(p bool) {
	s.prune = p
}

// SetCheckpoint makes the solver persist its table to path every interval
// and on cancellation. An empty path or non-positive interval disables the
// periodic save.
func (s *Solver) SetCheckpoint(path string, interval time.Duration) {
	s.checkpointPath = path
	s.checkpointInterval = interval
}

// SetLogInterval sets how often progress is logged. Non-positive disables
// progress logging.
func (s *Solver) SetLogInterval(d time.Duration) {
	s.logInterval = d
}

func (s *Solver) Table() *tablebase.Table {
	return s.table
}

func (s *Solver) Stats() *stats.SolverStats {
	return s.stats
}

func (s *Solver) Pruning() bool {
	return s.prune
}

// SaveCheckpoint writes the table to the configured checkpoint path.
func (s *Solver) SaveCheckpoint() (int, error) {
	if s.checkpointPath == "" {
		return 0, nil
	}
	start := time.Now()
	n, err := checkpoint.Save(s.checkpointPath, s.table)
	if err != nil {
		return 0, err
	}
	log.Info().Int("positions", n).Str("path", s.checkpointPath).
		Dur("elapsed", time.Since(start)).Msg("checkpoint-saved")
	return n, nil
}

func (s *Solver) buffer(depth int) []move.Move {
	for len(s.moveBufs) <= depth {
		s.moveBufs = append(s.moveBufs, make([]move.Move, 0, 32))
	}
	return s.moveBufs[depth][:0]
}

// newFrame builds the frame for the position currently on b. In pruning
// mode the moves are ordered: known wins for the mover first, then unknown
// and drawn moves, then known losses, each group in generation order.
// Immediate wins found while scanning are memoized on the spot.
func (s *Solver) newFrame(b board.Board, key uint64, u move.Undo, hasUndo bool, depth int) frame {
	mover := b.SideToMove()
	f := frame{
		key:     key,
		undo:    u,
		hasUndo: hasUndo,
		mover:   mover,
		best:    tablebase.Loss(mover),
	}
	buf := s.buffer(depth)
	s.gen.Reset(b)

	if !s.prune {
		for m, ok := s.gen.Next(); ok; m, ok = s.gen.Next() {
			buf = append(buf, m)
		}
		s.moveBufs[depth] = buf
		f.moves = buf
		return f
	}

	win, loss := tablebase.Win(mover), tablebase.Loss(mover)
	s.wins, s.mids, s.losses = s.wins[:0], s.mids[:0], s.losses[:0]
	for m, ok := s.gen.Next(); ok; m, ok = s.gen.Next() {
		child := b.Child(m)
		ck := symmetry.Canonical(child)
		o, known := s.table.Peek(ck)
		if !known {
			if w := child.Winner(); w != piece.NoPlayer {
				o, known = tablebase.OutcomeForWinner(w), true
				s.table.Store(ck, o)
				s.stats.RecordTerminal(o)
			}
		}
		switch {
		case known && o == win:
			s.wins = append(s.wins, m)
		case known && o == loss:
			s.losses = append(s.losses, m)
		default:
			s.mids = append(s.mids, m)
		}
	}
	buf = append(buf, s.wins...)
	buf = append(buf, s.mids...)
	buf = append(buf, s.losses...)
	s.moveBufs[depth] = buf
	f.moves = buf
	return f
}

// Solve computes the value of b, filling the table along the way.
//
// If ctx is cancelled the table is persisted to the checkpoint path (when
// one is set) and Unknown is returned with a nil error; Unknown is paired
// with an error only when that final save fails.
func (s *Solver) Solve(ctx context.Context, b board.Board) (tablebase.Outcome, error) {
	rootKey := symmetry.Canonical(b)
	if o, ok := s.table.Lookup(rootKey); ok {
		return o, nil
	}
	if w := b.Winner(); w != piece.NoPlayer {
		o := tablebase.OutcomeForWinner(w)
		s.table.Store(rootKey, o)
		s.stats.RecordTerminal(o)
		return o, nil
	}

	log.Debug().Bool("prune", s.prune).Str("root", b.String()).
		Str("checkpoint-path", s.checkpointPath).
		Dur("checkpoint-interval", s.checkpointInterval).
		Msg("solve-config")

	s.stats.Start()
	tstart := time.Now()
	lastCheckpoint, lastLog := tstart, tstart

	stack := make([]frame, 0, 64)
	path := make(map[uint64]struct{}, 64)
	stack = append(stack, s.newFrame(b, rootKey, move.Undo{}, false, 0))
	path[rootKey] = struct{}{}
	s.stats.RecordDepth(1)

	done := ctx.Done()
	var iterations uint64

	for len(stack) > 0 {
		select {
		case <-done:
			return s.interrupted()
		default:
		}

		if iterations%clockCheckEvery == 0 {
			now := time.Now()
			if s.checkpointPath != "" && s.checkpointInterval > 0 &&
				now.Sub(lastCheckpoint) >= s.checkpointInterval {
				if _, err := s.SaveCheckpoint(); err != nil {
					log.Err(err).Str("path", s.checkpointPath).Msg("periodic-checkpoint-failed")
				}
				lastCheckpoint = time.Now()
			}
			if s.logInterval > 0 && now.Sub(lastLog) >= s.logInterval {
				s.stats.LogProgress(s.table.Len())
				lastLog = now
			}
		}
		iterations++

		f := &stack[len(stack)-1]

		if s.prune && f.children > 0 && f.best == tablebase.Win(f.mover) {
			s.stats.BranchesPruned += uint64(len(f.moves) - f.idx)
			f.idx = len(f.moves)
		}

		if f.idx < len(f.moves) {
			m := f.moves[f.idx]
			f.idx++
			u := b.Apply(m)
			key := symmetry.Canonical(b)

			if o, ok := s.table.Lookup(key); ok {
				s.stats.CacheHits++
				f.fold(o)
				b.Undo(u)
				continue
			}
			if w := b.Winner(); w != piece.NoPlayer {
				o := tablebase.OutcomeForWinner(w)
				s.table.Store(key, o)
				s.stats.RecordTerminal(o)
				f.fold(o)
				b.Undo(u)
				continue
			}
			if _, onPath := path[key]; onPath {
				// Path-dependent, so never memoized.
				s.stats.CycleDraws++
				f.fold(tablebase.Draw)
				b.Undo(u)
				continue
			}
			// f is invalidated by the append below.
			child := s.newFrame(b, key, u, true, len(stack))
			stack = append(stack, child)
			path[key] = struct{}{}
			s.stats.RecordDepth(len(stack))
			continue
		}

		// Backtrack.
		resolved := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		delete(path, resolved.key)

		o := resolved.best
		if resolved.children == 0 {
			// No legal moves: the mover loses.
			o = tablebase.Loss(resolved.mover)
			s.stats.RecordTerminal(o)
		}
		s.table.Store(resolved.key, o)
		s.stats.PositionsEvaluated++

		if resolved.hasUndo {
			b.Undo(resolved.undo)
		}
		if len(stack) > 0 {
			stack[len(stack)-1].fold(o)
		}
	}

	created, lookups, hits := s.table.Counters()
	log.Info().
		Uint64("ttable-created", created).
		Uint64("ttable-lookups", lookups).
		Uint64("ttable-hits", hits).
		Uint64("positions-evaluated", s.stats.PositionsEvaluated).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("solve-returning")

	o, ok := s.table.Lookup(rootKey)
	if !ok {
		return tablebase.Unknown, fmt.Errorf("root %s missing from table after solve", b)
	}
	return o, nil
}

func (s *Solver) interrupted() (tablebase.Outcome, error) {
	log.Info().Int("positions", s.table.Len()).Msg("solve-interrupted")
	if _, err := s.SaveCheckpoint(); err != nil {
		return tablebase.Unknown, fmt.Errorf("persisting checkpoint: %w", err)
	}
	return tablebase.Unknown, nil
}
