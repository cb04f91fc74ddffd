package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/solver"
	"github.com/domino14/gobblet/tablebase"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errSolving           = errors.New("a solve is running; use `solve stop` first")
	errNoTable           = errors.New("no tablebase loaded; use `checkpoint` or `solve`")
	errExit              = errors.New("exiting")
)

// ErrIllegalMove is returned when a well-formed move is not legal in the
// current position.
var ErrIllegalMove = errors.New("illegal move")

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type solveJob struct {
	cancel  context.CancelFunc
	done    chan struct{}
	solver  *solver.Solver
	started time.Time
	result  tablebase.Outcome
	err     error
}

func (j *solveJob) running() bool {
	if j == nil {
		return false
	}
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

type ShellController struct {
	l   *readline.Instance
	out io.Writer
	cfg *config.Config

	board   board.Board
	history []move.Undo

	table  *tablebase.Table
	db     *tablebase.SQLiteStore
	dbPath string
	job    *solveJob
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func NewShellController(cfg *config.Config) *ShellController {
	sc := newController(cfg, os.Stderr)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mgobblet>\033[0m ",
		HistoryFile:     "/tmp/gobblet_readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func newController(cfg *config.Config, out io.Writer) *ShellController {
	return &ShellController{out: out, cfg: cfg, board: board.New()}
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) standardModeSwitch(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "quit":
		return nil, errExit
	case "help":
		return sc.help(cmd)
	case "new", "n":
		return sc.newPosition(cmd)
	case "load":
		return sc.load(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "moves", "gen":
		return sc.moves(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo(cmd)
	case "canon":
		return sc.canon(cmd)
	case "random":
		return sc.random(cmd)
	case "checkpoint":
		return sc.checkpoint(cmd)
	case "lookup":
		return sc.lookup(cmd)
	case "best":
		return sc.best(cmd)
	case "solve":
		return sc.solve(cmd)
	case "stats":
		return sc.stats(cmd)
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Execute runs a single command line, as the shell's -e mode does.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.standardModeSwitch(line)
	if errors.Is(err, errExit) {
		sig <- syscall.SIGINT
		return
	}
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.standardModeSwitch(line)
		if errors.Is(err, errExit) {
			sig <- syscall.SIGINT
			break
		}
		if err != nil {
			sc.showError(err)
		} else if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops any running solve, letting it write its checkpoint, and
// closes the SQLite store.
func (sc *ShellController) Cleanup() {
	if sc.job.running() {
		log.Info().Msg("stopping-solve")
		sc.job.cancel()
		<-sc.job.done
	}
	if sc.db != nil {
		if err := sc.db.Close(); err != nil {
			log.Err(err).Msg("closing-sqlite")
		}
		sc.db = nil
	}
}
