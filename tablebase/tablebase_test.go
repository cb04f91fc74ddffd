package tablebase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/gobblet/piece"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestOutcomeHelpers(t *testing.T) {
	is := is.New(t)
	is.Equal(OutcomeForWinner(piece.PlayerOne), WinP1)
	is.Equal(OutcomeForWinner(piece.PlayerTwo), WinP2)
	is.Equal(OutcomeForWinner(piece.NoPlayer), Draw)
	is.Equal(Loss(piece.PlayerOne), WinP2)
	is.Equal(Win(piece.PlayerTwo), WinP2)

	is.Equal(WinP2.Relative(piece.PlayerTwo), 1)
	is.Equal(WinP2.Relative(piece.PlayerOne), -1)
	is.True(Better(piece.PlayerTwo, Draw, WinP1))
	is.True(!Better(piece.PlayerOne, Draw, WinP1))

	is.True(!Unknown.Valid())
	is.Equal(Unknown.String(), "unknown")
	is.Equal(WinP1.String(), "win-p1")
	is.Equal(Outcome(5).String(), "outcome(5)")
}

func TestTableWriteOnce(t *testing.T) {
	is := is.New(t)
	tb := New(0)
	is.True(tb.Store(42, WinP1))
	is.True(!tb.Store(42, WinP2))
	is.True(!tb.Store(7, Unknown))

	o, ok := tb.Lookup(42)
	is.True(ok)
	is.Equal(o, WinP1)
	_, ok = tb.Lookup(43)
	is.True(!ok)

	created, lookups, hits := tb.Counters()
	is.Equal(created, uint64(1))
	is.Equal(lookups, uint64(2))
	is.Equal(hits, uint64(1))
	is.True(tb.Contains(42))
	is.Equal(tb.Len(), 1)

	tb.Reset()
	is.Equal(tb.Len(), 0)
	created, _, _ = tb.Counters()
	is.Equal(created, uint64(0))
}

func TestEntriesSorted(t *testing.T) {
	is := is.New(t)
	tb := New(8)
	for _, k := range []uint64{900, 3, 77, 1 << 50, 12} {
		tb.Store(k, Draw)
	}
	es := tb.Entries()
	is.Equal(len(es), 5)
	for i := 1; i < len(es); i++ {
		is.True(es[i-1].Key < es[i].Key)
	}
}

func TestMerge(t *testing.T) {
	is := is.New(t)
	tb := New(0)
	tb.Store(1, WinP1)
	n := tb.Merge([]Entry{{1, WinP2}, {2, Draw}, {3, WinP2}})
	is.Equal(n, 2)
	o, _ := tb.Lookup(1)
	is.Equal(o, WinP1)
}

func TestNewForMemory(t *testing.T) {
	is := is.New(t)
	tb := NewForMemory(0)
	is.Equal(tb.Len(), 0)
	is.True(tb.Store(1, Draw))
}

func TestSQLiteExportAndLookup(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tb.db")

	tb := New(0)
	for i := uint64(0); i < 250; i++ {
		tb.Store(i*1021+(1<<54), Outcome(int(i%3)-1))
	}
	entries := tb.Entries()
	is.NoErr(ExportSQLite(ctx, path, entries, 100))
	// exporting again replaces the file instead of failing on the table.
	is.NoErr(ExportSQLite(ctx, path, entries, 100))

	store, err := OpenSQLite(path)
	is.NoErr(err)
	defer store.Close()

	n, err := store.Count(ctx)
	is.NoErr(err)
	is.Equal(n, 250)

	for _, e := range entries[:20] {
		o, ok, err := store.Lookup(ctx, e.Key)
		is.NoErr(err)
		is.True(ok)
		is.Equal(o, e.Outcome)
	}
	_, ok, err := store.Lookup(ctx, 5)
	is.NoErr(err)
	is.True(!ok)

	bad, err := store.Verify(ctx, entries, 10)
	is.NoErr(err)
	is.Equal(bad, 0)

	is.Equal(entries[0].Outcome, WinP2)
	wrong := []Entry{{Key: entries[0].Key, Outcome: WinP1}}
	bad, err = store.Verify(ctx, wrong, 1)
	is.NoErr(err)
	is.Equal(bad, 1)
}

func TestOpenSQLiteMissing(t *testing.T) {
	is := is.New(t)
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "nope.db"))
	is.True(os.IsNotExist(err))
}
