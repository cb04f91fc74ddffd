package shell

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testController(t *testing.T) (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	cfg.Set(config.KeyDataPath, t.TempDir())
	cfg.Set(config.KeyTableMemoryFraction, 0.0)
	out := &bytes.Buffer{}
	return newController(&cfg, out), out
}

// immediateWin: P1 to move with larges on 0 and 1 and cell 2 open.
func immediateWin() board.Board {
	b := board.New()
	b.PushPiece(0, piece.PlayerOne, piece.Large)
	b.PushPiece(1, piece.PlayerOne, piece.Large)
	b.PushPiece(4, piece.PlayerTwo, piece.Medium)
	b.PushPiece(8, piece.PlayerTwo, piece.Small)
	return b
}

func run(sc *ShellController, line string) (string, error) {
	resp, err := sc.standardModeSwitch(line)
	if err != nil {
		return "", err
	}
	return resp.message, nil
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"checkpoint -path /path/to/pruned.bin",
			&shellcmd{"checkpoint", nil, CmdOptions{"path": {"/path/to/pruned.bin"}}},
			nil},
		{"solve stop",
			&shellcmd{"solve", []string{"stop"}, CmdOptions{}},
			nil},
		{"play M4 2-5 -plies 3 ",
			&shellcmd{"play",
				[]string{"M4", "2-5"},
				CmdOptions{"plies": {"3"}}},
			nil,
		},
		{"lookup db -db a.db -db 'b c.db'",
			&shellcmd{"lookup", []string{"db"}, CmdOptions{"db": {"a.db", "b c.db"}}},
			nil},
		{"solve -prune",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func TestCmdOptions(t *testing.T) {
	is := is.New(t)
	opts := CmdOptions{"plies": {"7"}, "prune": {"False"}, "bad": {"x"}}
	n, err := opts.IntDefault("plies", 3)
	is.NoErr(err)
	is.Equal(n, 7)
	n, err = opts.IntDefault("games", 3)
	is.NoErr(err)
	is.Equal(n, 3)
	_, err = opts.Int("games")
	is.True(err != nil)
	_, err = opts.Int("bad")
	is.True(err != nil)
	is.Equal(opts.BoolDefault("prune", true), false)
	is.Equal(opts.BoolDefault("missing", true), true)
}

func TestPlayAndUndo(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)

	_, err := run(sc, "play M4 S0")
	is.NoErr(err)
	is.Equal(sc.board.Top(4), piece.Piece{Owner: piece.PlayerOne, Size: piece.Medium})
	is.Equal(sc.board.Top(0), piece.Piece{Owner: piece.PlayerTwo, Size: piece.Small})
	is.Equal(sc.board.SideToMove(), piece.PlayerOne)

	_, err = run(sc, "play 4-0")
	is.NoErr(err)
	is.True(sc.board.IsEmpty(4))
	is.Equal(sc.board.Top(0).Size, piece.Medium)

	_, err = run(sc, "undo 3")
	is.NoErr(err)
	is.Equal(sc.board, board.New())

	_, err = run(sc, "undo")
	is.True(err != nil)
}

func TestIllegalMoves(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)

	_, err := run(sc, "play M4")
	is.NoErr(err)
	before := sc.board

	// A small cannot cover a medium.
	_, err = run(sc, "play S4")
	is.True(errors.Is(err, ErrIllegalMove))
	// P2 cannot slide P1's piece.
	_, err = run(sc, "play 4-5")
	is.True(errors.Is(err, ErrIllegalMove))
	_, err = run(sc, "play X9")
	is.True(errors.Is(err, move.ErrBadMoveString))
	is.Equal(sc.board, before)
	is.Equal(len(sc.history), 1)
}

func TestPlayAfterWin(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	sc.board = immediateWin()
	_, err := run(sc, "play M2")
	is.NoErr(err)
	is.Equal(sc.board.Winner(), piece.PlayerOne)

	_, err = run(sc, "play S5")
	is.True(err != nil)
	out, err := run(sc, "moves")
	is.NoErr(err)
	is.True(strings.Contains(out, "game over"))
}

func TestMoves(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	out, err := run(sc, "moves")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "27 moves:"))
	is.True(strings.Contains(out, "L8"))
}

func TestLoad(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	b := immediateWin()

	_, err := run(sc, "load "+b.String())
	is.NoErr(err)
	is.Equal(sc.board, b)

	_, err = run(sc, "load "+strconv.FormatUint(b.Uint64(), 10))
	is.NoErr(err)
	is.Equal(sc.board, b)

	_, err = run(sc, "load 0xffffffffffffffff")
	is.True(errors.Is(err, board.ErrInvalidEncoding))
	_, err = run(sc, "load notanumber")
	is.True(errors.Is(err, board.ErrInvalidEncoding))
}

func TestCanon(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	_, err := run(sc, "play S8")
	is.NoErr(err)
	out, err := run(sc, "canon")
	is.NoErr(err)
	cb, _ := symmetry.CanonicalBoard(sc.board)
	is.True(strings.Contains(out, cb.String()))
}

func TestRandom(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	_, err := run(sc, "random -plies 6")
	is.NoErr(err)
	is.True(len(sc.history) >= 1)
	is.True(len(sc.history) <= 6)
	_, err = run(sc, "undo "+strconv.Itoa(len(sc.history)))
	is.NoErr(err)
	is.Equal(sc.board, board.New())
}

func TestTableCommandsNeedTable(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	for _, line := range []string{"lookup", "best", "stats table", "stats line", "checkpoint save"} {
		_, err := run(sc, line)
		is.Equal(err, errNoTable)
	}
}

func TestSolveLookupAndBest(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	sc.board = immediateWin()

	out, err := run(sc, "solve -prune true")
	is.NoErr(err)
	is.True(strings.Contains(out, "in the background"))
	<-sc.job.done
	is.NoErr(sc.job.err)
	is.Equal(sc.job.result, tablebase.WinP1)

	out, err = run(sc, "solve status")
	is.NoErr(err)
	is.True(strings.Contains(out, "win-p1"))

	out, err = run(sc, "lookup")
	is.NoErr(err)
	is.Equal(out, "win-p1")

	out, err = run(sc, "best")
	is.NoErr(err)
	lines := strings.Split(out, "\n")
	is.True(len(lines) >= 2)
	is.True(strings.Contains(lines[1], "win-p1"))

	out, err = run(sc, "stats table")
	is.NoErr(err)
	is.True(strings.Contains(out, "Positions:"))

	_, err = run(sc, "solve stop")
	is.True(err != nil)
}

func TestCheckpointSaveAndLoad(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	sc.board = immediateWin()
	path := filepath.Join(t.TempDir(), "cp.bin")

	_, err := run(sc, "solve")
	is.NoErr(err)
	<-sc.job.done
	n := sc.table.Len()

	out, err := run(sc, "checkpoint save -path "+path)
	is.NoErr(err)
	is.True(strings.Contains(out, "saved"))
	entries, err := checkpoint.Load(path)
	is.NoErr(err)
	is.Equal(len(entries), n)

	sc.table = nil
	_, err = run(sc, "checkpoint load -path "+path)
	is.NoErr(err)
	is.Equal(sc.table.Len(), n)

	out, err = run(sc, "checkpoint info -path "+path)
	is.NoErr(err)
	is.True(strings.Contains(out, "positions"))

	_, err = run(sc, "checkpoint load -path "+filepath.Join(t.TempDir(), "missing.bin"))
	is.True(errors.Is(err, checkpoint.ErrUnreadable))
}

func TestLookupSQLite(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	sc.board = immediateWin()
	_, err := run(sc, "solve")
	is.NoErr(err)
	<-sc.job.done

	db := filepath.Join(t.TempDir(), "tb.db")
	is.NoErr(tablebase.ExportSQLite(t.Context(), db, sc.table.Entries(), 0))

	out, err := run(sc, "lookup -db "+db)
	is.NoErr(err)
	is.Equal(out, "win-p1")

	_, err = run(sc, "new")
	is.NoErr(err)
	out, err = run(sc, "lookup db -db "+db)
	is.NoErr(err)
	is.True(strings.Contains(out, "not in database"))

	// The configured default path was never exported.
	_, err = run(sc, "lookup db")
	is.True(err != nil)
	sc.Cleanup()
	is.Equal(sc.db, nil)
}

func TestHelp(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	out, err := run(sc, "help")
	is.NoErr(err)
	is.True(strings.Contains(out, "Commands:"))
	for _, topic := range commandMetadata["help"].Args {
		_, err := run(sc, "help "+topic)
		is.NoErr(err)
	}
	_, err = run(sc, "help nosuchtopic")
	is.True(err != nil)
}

func TestExecute(t *testing.T) {
	is := is.New(t)
	sc, out := testController(t)
	sig := make(chan os.Signal, 1)

	sc.Execute(sig, "play M4")
	is.True(strings.Contains(out.String(), "encoding:"))
	sc.Execute(sig, "bogus")
	is.True(strings.Contains(out.String(), "Error: command \"bogus\" not found"))
	sc.Execute(sig, "exit")
	is.Equal(<-sig, os.Signal(syscall.SIGINT))
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, _ := testController(t)
	c := NewShellCompleter(sc)

	m, n := c.Do([]rune("che"), 3)
	is.Equal(n, 3)
	is.Equal(m, [][]rune{[]rune("ckpoint")})

	m, _ = c.Do([]rune("solve -prune "), 13)
	is.Equal(len(m), 2)

	line := []rune("play L")
	m, n = c.Do(line, len(line))
	is.Equal(n, 1)
	is.Equal(len(m), 9)

	line = []rune("stats -")
	m, _ = c.Do(line, len(line))
	is.Equal(m, [][]rune{[]rune("games")})
}
