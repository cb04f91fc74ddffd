package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/domino14/gobblet/analysis"
	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/checkpoint"
	"github.com/domino14/gobblet/config"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/solver"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

const (
	defaultRandomPlies    = 12
	defaultBranchingGames = 1000
	defaultLinePlies      = 40
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func (c CmdOptions) BoolDefault(key string, defaultB bool) bool {
	if len(c[key]) == 0 {
		return defaultB
	}
	return c.Bool(key)
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) boardText() string {
	return sc.board.ToDisplayText() + "encoding: " + sc.board.String()
}

func (sc *ShellController) newPosition(cmd *shellcmd) (*Response, error) {
	sc.board = board.New()
	sc.history = sc.history[:0]
	return msg(sc.boardText()), nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: load <encoding>")
	}
	v, err := strconv.ParseUint(cmd.args[0], 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", board.ErrInvalidEncoding, err)
	}
	b, err := board.Decode(v)
	if err != nil {
		return nil, err
	}
	sc.board = b
	sc.history = sc.history[:0]
	return msg(sc.boardText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.boardText()), nil
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if w := sc.board.Winner(); w != piece.NoPlayer {
		return msg(fmt.Sprintf("game over, %s has won", w)), nil
	}
	moves := movegen.GenAll(sc.board)
	if len(moves) == 0 {
		return msg(fmt.Sprintf("%s has no legal moves and loses", sc.board.SideToMove())), nil
	}
	descs := lo.Map(moves, func(m move.Move, _ int) string { return m.ShortDescription() })
	return msg(fmt.Sprintf("%d moves: %s", len(moves), strings.Join(descs, " "))), nil
}

// legalMove parses s and checks it against the legal moves of the current
// position.
func (sc *ShellController) legalMove(s string) (move.Move, error) {
	if w := sc.board.Winner(); w != piece.NoPlayer {
		return move.Move{}, fmt.Errorf("game is over, %s has won", w)
	}
	m, err := move.Parse(s)
	if err != nil {
		return move.Move{}, err
	}
	if !lo.Contains(movegen.GenAll(sc.board), m) {
		return move.Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, m.ShortDescription())
	}
	return m, nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <move> [<move> ...]")
	}
	for _, a := range cmd.args {
		m, err := sc.legalMove(a)
		if err != nil {
			return nil, err
		}
		sc.history = append(sc.history, sc.board.Apply(m))
	}
	return msg(sc.boardText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	n, err := strconv.Atoi(lo.FirstOr(cmd.args, "1"))
	if err != nil {
		return nil, err
	}
	if n > len(sc.history) {
		return nil, fmt.Errorf("only %d moves to undo", len(sc.history))
	}
	for i := 0; i < n; i++ {
		u := sc.history[len(sc.history)-1]
		sc.history = sc.history[:len(sc.history)-1]
		sc.board.Undo(u)
	}
	return msg(sc.boardText()), nil
}

func (sc *ShellController) canon(cmd *shellcmd) (*Response, error) {
	cb, t := symmetry.CanonicalBoard(sc.board)
	var ss strings.Builder
	fmt.Fprintf(&ss, "canonical key: %s (%d)\n", cb, cb.Uint64())
	fmt.Fprintf(&ss, "transform: %s\n", t)
	ss.WriteString(cb.ToDisplayText())
	return msg(strings.TrimRight(ss.String(), "\n")), nil
}

func (sc *ShellController) random(cmd *shellcmd) (*Response, error) {
	plies, err := cmd.options.IntDefault("plies", defaultRandomPlies)
	if err != nil {
		return nil, err
	}
	var played []string
	for i := 0; i < plies && sc.board.Winner() == piece.NoPlayer; i++ {
		moves := movegen.GenAll(sc.board)
		if len(moves) == 0 {
			break
		}
		m := moves[frand.Intn(len(moves))]
		sc.history = append(sc.history, sc.board.Apply(m))
		played = append(played, m.ShortDescription())
	}
	return msg("played: " + strings.Join(played, " ") + "\n" + sc.boardText()), nil
}

func (sc *ShellController) checkpointPath(cmd *shellcmd) string {
	if p := cmd.options.String("path"); p != "" {
		return p
	}
	return sc.cfg.CheckpointPath()
}

func (sc *ShellController) checkpoint(cmd *shellcmd) (*Response, error) {
	if sc.job.running() {
		return nil, errSolving
	}
	path := sc.checkpointPath(cmd)
	switch lo.FirstOr(cmd.args, "load") {
	case "load":
		entries, err := checkpoint.Load(path)
		if err != nil {
			return nil, err
		}
		t := tablebase.New(len(entries))
		t.Merge(entries)
		sc.table = t
		return msg(fmt.Sprintf("loaded %d positions from %s", t.Len(), path)), nil
	case "save":
		if sc.table == nil {
			return nil, errNoTable
		}
		n, err := checkpoint.Save(path, sc.table)
		if err != nil {
			return nil, err
		}
		return msg(fmt.Sprintf("saved %d positions to %s", n, path)), nil
	case "info":
		entries, err := checkpoint.Load(path)
		if err != nil {
			return nil, err
		}
		d := analysis.OutcomeDistribution(entries)
		return msg(fmt.Sprintf("%s: %d positions, %d p1 wins, %d p2 wins, %d draws",
			path, d.Total, d.P1Wins, d.P2Wins, d.Draws)), nil
	default:
		return nil, errors.New("usage: checkpoint [load|save|info] [-path <file>]")
	}
}

func (sc *ShellController) openDB(path string) (*tablebase.SQLiteStore, error) {
	if sc.db != nil && sc.dbPath == path {
		return sc.db, nil
	}
	db, err := tablebase.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if sc.db != nil {
		sc.db.Close()
	}
	sc.db, sc.dbPath = db, path
	return db, nil
}

func (sc *ShellController) lookup(cmd *shellcmd) (*Response, error) {
	if w := sc.board.Winner(); w != piece.NoPlayer {
		return msg(tablebase.OutcomeForWinner(w).String() + " (already won)"), nil
	}
	key := symmetry.Canonical(sc.board)
	if cmd.options.String("db") != "" || len(cmd.args) > 0 && cmd.args[0] == "db" {
		path := cmd.options.String("db")
		if path == "" {
			path = sc.cfg.SQLitePath()
		}
		db, err := sc.openDB(path)
		if err != nil {
			return nil, err
		}
		o, ok, err := db.Lookup(context.Background(), key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return msg(fmt.Sprintf("%s not in database", board.FromUint64(key))), nil
		}
		return msg(o.String()), nil
	}
	if sc.job.running() {
		return nil, errSolving
	}
	if sc.table == nil {
		return nil, errNoTable
	}
	o, ok := solver.Evaluate(sc.table, sc.board)
	if !ok {
		return msg(fmt.Sprintf("%s not in table", board.FromUint64(key))), nil
	}
	return msg(o.String()), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	if sc.job.running() {
		return nil, errSolving
	}
	if sc.table == nil {
		return nil, errNoTable
	}
	scored := solver.BestMoves(sc.table, sc.board)
	if len(scored) == 0 {
		return msg("no legal moves"), nil
	}
	var ss strings.Builder
	fmt.Fprintf(&ss, "%-6s%-10s\n", "Move", "Result")
	for _, s := range scored {
		res := "unknown"
		if s.Known {
			res = s.Outcome.String()
		}
		fmt.Fprintf(&ss, "%-6s%-10s\n", s.Move.ShortDescription(), res)
	}
	return msg(strings.TrimRight(ss.String(), "\n")), nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	switch lo.FirstOr(cmd.args, "") {
	case "stop":
		if !sc.job.running() {
			return nil, errors.New("no solve is running")
		}
		sc.job.cancel()
		<-sc.job.done
		return msg("solve stopped; " + sc.jobStatus()), nil
	case "status":
		if sc.job == nil {
			return nil, errors.New("no solve has been started")
		}
		return msg(sc.jobStatus()), nil
	case "":
	default:
		return nil, errors.New("usage: solve [stop|status] [-prune true|false] [-path <file>]")
	}
	if sc.job.running() {
		return nil, errSolving
	}
	if sc.table == nil {
		sc.table = tablebase.NewForMemory(sc.cfg.GetFloat64(config.KeyTableMemoryFraction))
	}
	s := &solver.Solver{}
	s.Init(sc.table)
	s.SetPruning(cmd.options.BoolDefault("prune", sc.cfg.GetBool(config.KeyPrune)))
	s.SetCheckpoint(sc.checkpointPath(cmd), sc.cfg.GetDuration(config.KeyCheckpointInterval))
	// Progress lines would interleave with the prompt.
	s.SetLogInterval(0)

	ctx, cancel := context.WithCancel(context.Background())
	job := &solveJob{cancel: cancel, done: make(chan struct{}), solver: s, started: time.Now()}
	sc.job = job
	root := sc.board
	go func() {
		defer close(job.done)
		job.result, job.err = s.Solve(ctx, root)
		if job.err != nil {
			log.Err(job.err).Msg("shell-solve-failed")
		}
	}()
	return msg(fmt.Sprintf("solving %s (prune=%v) in the background", root, s.Pruning())), nil
}

// jobStatus reads solver counters only once the job is done.
func (sc *ShellController) jobStatus() string {
	j := sc.job
	if j.running() {
		return fmt.Sprintf("running for %s", time.Since(j.started).Round(time.Second))
	}
	if j.err != nil {
		return "failed: " + j.err.Error()
	}
	st := j.solver.Stats()
	return fmt.Sprintf("result %s; %d positions evaluated, %d in table, %.1f%% pruned, %s",
		j.result, st.PositionsEvaluated, sc.table.Len(), st.PruningPct(),
		st.Elapsed().Round(time.Millisecond))
}

func (sc *ShellController) stats(cmd *shellcmd) (*Response, error) {
	var ss strings.Builder
	switch lo.FirstOr(cmd.args, "table") {
	case "branching":
		games, err := cmd.options.IntDefault("games", defaultBranchingGames)
		if err != nil {
			return nil, err
		}
		br := analysis.SampleBranching(games, defaultLinePlies)
		fmt.Fprintf(&ss, "mean %.2f stdev %.2f min %d max %d over %d positions\n",
			br.Mean, br.StdDev, br.Min, br.Max, br.Positions)
		if err := br.WriteHistogram(&ss, 10, 50); err != nil {
			return nil, err
		}
	case "table":
		if sc.job.running() {
			return nil, errSolving
		}
		if sc.table == nil {
			return nil, errNoTable
		}
		entries := sc.table.Entries()
		r := analysis.Report{
			Outcomes:  analysis.OutcomeDistribution(entries),
			ByPieces:  analysis.ByPieces(entries),
			Canonical: analysis.CheckCanonical(entries, 1000),
		}
		if err := r.WriteText(&ss); err != nil {
			return nil, err
		}
	case "line":
		if sc.job.running() {
			return nil, errSolving
		}
		if sc.table == nil {
			return nil, errNoTable
		}
		d := analysis.ComputeDistances(sc.table)
		line := analysis.Line(sc.table, d, sc.board, defaultLinePlies)
		if len(line) == 0 {
			return msg("no decisive line from this position"), nil
		}
		descs := lo.Map(line, func(m move.Move, _ int) string { return m.ShortDescription() })
		fmt.Fprintf(&ss, "%d plies: %s", len(line), strings.Join(descs, " "))
	default:
		return nil, errors.New("usage: stats [table|branching|line]")
	}
	return msg(strings.TrimRight(ss.String(), "\n")), nil
}
