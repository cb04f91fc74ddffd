package solver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const (
	p1 = piece.PlayerOne
	p2 = piece.PlayerTwo
)

// immediateWin: P1 to move with larges on 0 and 1 and cell 2 open.
func immediateWin() board.Board {
	b := board.New()
	b.PushPiece(0, p1, piece.Large)
	b.PushPiece(1, p1, piece.Large)
	b.PushPiece(4, p2, piece.Medium)
	b.PushPiece(8, p2, piece.Small)
	return b
}

// doubleThreat: P2 threatens both 0-4-8 (at 8) and 2-4-6 (at 6); nothing
// P1 does stops both and P1 has no win of its own.
func doubleThreat() board.Board {
	b := board.New()
	b.PushPiece(0, p2, piece.Large)
	b.PushPiece(4, p2, piece.Large)
	b.PushPiece(2, p2, piece.Medium)
	b.PushPiece(1, p1, piece.Large)
	b.PushPiece(3, p1, piece.Medium)
	return b
}

func newSolver(t *tablebase.Table) *Solver {
	s := &Solver{}
	s.Init(t)
	s.SetLogInterval(0)
	return s
}

func TestAlreadyWonRoot(t *testing.T) {
	is := is.New(t)
	b := board.New()
	b.PushPiece(2, p2, piece.Small)
	b.PushPiece(4, p2, piece.Medium)
	b.PushPiece(6, p2, piece.Large)
	s := newSolver(tablebase.New(0))
	o, err := s.Solve(context.Background(), b)
	is.NoErr(err)
	is.Equal(o, tablebase.WinP2)
	is.Equal(s.Table().Len(), 1)
	is.Equal(s.Stats().PositionsEvaluated, uint64(0))
}

func TestRootAlreadyInTable(t *testing.T) {
	is := is.New(t)
	tb := tablebase.New(0)
	b := immediateWin()
	tb.Store(symmetry.Canonical(b), tablebase.Draw)
	s := newSolver(tb)
	o, err := s.Solve(context.Background(), b)
	is.NoErr(err)
	is.Equal(o, tablebase.Draw)
	is.Equal(tb.Len(), 1)
}

func TestImmediateWinPrunesSiblings(t *testing.T) {
	is := is.New(t)
	s := newSolver(tablebase.New(0))
	b := immediateWin()
	o, err := s.Solve(context.Background(), b)
	is.NoErr(err)
	is.Equal(o, tablebase.WinP1)

	st := s.Stats()
	is.Equal(st.PositionsEvaluated, uint64(1))
	is.Equal(st.BranchesPruned, uint64(len(movegen.GenAll(b))-1))
	is.True(st.P1Wins >= 1)
	// the board handed in is not mutated
	is.Equal(b, immediateWin())
}

func TestDoubleThreatLoses(t *testing.T) {
	is := is.New(t)
	s := newSolver(tablebase.New(0))
	b := doubleThreat()
	o, err := s.Solve(context.Background(), b)
	is.NoErr(err)
	is.Equal(o, tablebase.WinP2)

	moves := movegen.GenAll(b)
	is.True(s.Stats().PositionsEvaluated <= uint64(len(moves)+1))
	is.True(s.Stats().MaxDepth >= 2)
	is.True(s.Stats().BranchesPruned > 0)

	for _, m := range moves {
		o, ok := Evaluate(s.Table(), b.Child(m))
		is.True(ok)
		is.Equal(o, tablebase.WinP2)
	}
}

func TestTableKeysAreCanonical(t *testing.T) {
	is := is.New(t)
	s := newSolver(tablebase.New(0))
	_, err := s.Solve(context.Background(), doubleThreat())
	is.NoErr(err)
	is.True(s.Table().Len() > 0)
	for _, e := range s.Table().Entries() {
		is.Equal(symmetry.Canonical(board.FromUint64(e.Key)), e.Key)
		is.True(e.Outcome.Valid())
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	is := is.New(t)
	a := newSolver(tablebase.New(0))
	b := newSolver(tablebase.New(0))
	_, err := a.Solve(context.Background(), doubleThreat())
	is.NoErr(err)
	_, err = b.Solve(context.Background(), doubleThreat())
	is.NoErr(err)
	is.Equal(a.Table().Entries(), b.Table().Entries())
	is.Equal(a.Stats().PositionsEvaluated, b.Stats().PositionsEvaluated)
}

func TestUnprunedFoldsSolvedChildren(t *testing.T) {
	is := is.New(t)
	root := doubleThreat()
	pruned := newSolver(tablebase.New(0))
	want, err := pruned.Solve(context.Background(), root)
	is.NoErr(err)

	// Seed a fresh table with only the children's values; the unpruned
	// search should then resolve the root from lookups alone.
	seeded := tablebase.New(0)
	moves := movegen.GenAll(root)
	for _, m := range moves {
		k := symmetry.Canonical(root.Child(m))
		o, ok := pruned.Table().Peek(k)
		is.True(ok)
		seeded.Store(k, o)
	}
	full := newSolver(seeded)
	full.SetPruning(false)
	got, err := full.Solve(context.Background(), root)
	is.NoErr(err)
	is.Equal(got, want)
	is.Equal(full.Stats().PositionsEvaluated, uint64(1))
	is.Equal(full.Stats().CacheHits, uint64(len(moves)))
	is.Equal(full.Stats().BranchesPruned, uint64(0))
}

func TestCancelPersistsAndResumes(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "pruned.bin")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSolver(tablebase.New(0))
	s.SetCheckpoint(path, time.Hour)
	o, err := s.Solve(ctx, immediateWin())
	is.NoErr(err)
	is.Equal(o, tablebase.Unknown)

	entries, err := checkpoint.Load(path)
	is.NoErr(err)
	is.True(len(entries) >= 1)
	is.Equal(len(entries), s.Table().Len())

	resumed := tablebase.New(0)
	resumed.Merge(entries)
	s2 := newSolver(resumed)
	o, err = s2.Solve(context.Background(), immediateWin())
	is.NoErr(err)
	is.Equal(o, tablebase.WinP1)
	is.True(s2.Stats().CacheHits >= 1)
}

func TestCancelWithUnwritableCheckpoint(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	is.NoErr(os.WriteFile(blocker, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSolver(tablebase.New(0))
	s.SetCheckpoint(filepath.Join(blocker, "sub", "cp.bin"), time.Hour)
	o, err := s.Solve(ctx, immediateWin())
	is.True(err != nil)
	is.Equal(o, tablebase.Unknown)
}

func TestPeriodicCheckpointFailureIsNotFatal(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	is.NoErr(os.WriteFile(blocker, []byte("x"), 0o644))

	s := newSolver(tablebase.New(0))
	s.SetCheckpoint(filepath.Join(blocker, "sub", "cp.bin"), time.Nanosecond)
	o, err := s.Solve(context.Background(), doubleThreat())
	is.NoErr(err)
	is.Equal(o, tablebase.WinP2)
}

func TestPeriodicCheckpointWritten(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "cp.bin")
	s := newSolver(tablebase.New(0))
	s.SetCheckpoint(path, time.Nanosecond)
	_, err := s.Solve(context.Background(), doubleThreat())
	is.NoErr(err)
	_, err = os.Stat(path)
	is.NoErr(err)
}

func TestBestMoves(t *testing.T) {
	is := is.New(t)
	s := newSolver(tablebase.New(0))
	b := immediateWin()
	_, err := s.Solve(context.Background(), b)
	is.NoErr(err)

	ranked := BestMoves(s.Table(), b)
	is.Equal(len(ranked), len(movegen.GenAll(b)))
	is.True(ranked[0].Known)
	is.Equal(ranked[0].Score, 1)
	is.Equal(ranked[0].Outcome, tablebase.WinP1)
	is.Equal(b.Child(ranked[0].Move).Winner(), p1)
	for i := 1; i < len(ranked); i++ {
		is.True(ranked[i-1].Score >= ranked[i].Score)
	}
}

func TestEvaluateUnknown(t *testing.T) {
	is := is.New(t)
	o, ok := Evaluate(tablebase.New(0), board.New())
	is.True(!ok)
	is.Equal(o, tablebase.Unknown)
}

// Solving the opening takes minutes even with pruning.
func TestSolveInitialPosition(t *testing.T) {
	if os.Getenv("GOBBLET_LONG_TESTS") == "" {
		t.Skip("set GOBBLET_LONG_TESTS to solve the initial position")
	}
	is := is.New(t)
	s := newSolver(tablebase.NewForMemory(0.1))
	o, err := s.Solve(context.Background(), board.New())
	is.NoErr(err)
	is.Equal(o, tablebase.WinP1)
}

func TestSolveInitialPositionUnpruned(t *testing.T) {
	if os.Getenv("GOBBLET_LONG_TESTS") != "full" {
		t.Skip("set GOBBLET_LONG_TESTS=full for the unpruned solve")
	}
	is := is.New(t)
	s := newSolver(tablebase.NewForMemory(0.25))
	s.SetPruning(false)
	o, err := s.Solve(context.Background(), board.New())
	is.NoErr(err)
	is.Equal(o, tablebase.WinP1)
}
