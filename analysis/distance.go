package analysis

import (
	"github.com/rs/zerolog/log"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

// Distances maps canonical keys of decided positions to the number of
// plies until the game ends under best play: the winner hurries, the loser
// stalls.
type Distances map[uint64]int

// DistanceStats summarizes a Distances computation.
type DistanceStats struct {
	Solved   int      `yaml:"solved"`
	Unsolved int      `yaml:"unsolved"`
	Max      int      `yaml:"max"`
	Initial  int      `yaml:"initial"`
	Line     []string `yaml:"line,omitempty"`
}

// childDistance looks up b as a reply: whether it is won for winner, and
// if so whether its distance is known yet.
func childDistance(t *tablebase.Table, d Distances, b board.Board, winner piece.Player) (dist int, isWin, known bool) {
	if w := b.Winner(); w != piece.NoPlayer {
		return 0, w == winner, true
	}
	k := symmetry.Canonical(b)
	o, ok := t.Peek(k)
	if !ok || o != tablebase.OutcomeForWinner(winner) {
		return 0, false, ok
	}
	dist, known = d[k]
	return dist, true, known
}

// ComputeDistances propagates distance-to-win backwards through the
// decided entries of t until nothing changes. Positions whose children are
// missing from t (typical of a pruned solve) may stay unsolved.
func ComputeDistances(t *tablebase.Table) Distances {
	entries := t.Entries()
	d := make(Distances)
	var pending []tablebase.Entry
	for _, e := range entries {
		if e.Outcome == tablebase.Draw {
			continue
		}
		b := board.FromUint64(e.Key)
		if b.Winner() != piece.NoPlayer {
			d[e.Key] = 0
			continue
		}
		if _, ok := movegen.NewGenerator(b).Next(); !ok {
			d[e.Key] = 0
			continue
		}
		pending = append(pending, e)
	}
	log.Debug().Int("base", len(d)).Int("pending", len(pending)).Msg("distances-initialized")

	for iteration := 1; ; iteration++ {
		changed := 0
		rest := pending[:0]
		for _, e := range pending {
			if dist, ok := resolveDistance(t, d, e); ok {
				d[e.Key] = dist
				changed++
				continue
			}
			rest = append(rest, e)
		}
		pending = rest
		log.Debug().Int("iteration", iteration).Int("solved", changed).
			Int("pending", len(pending)).Msg("distances-iteration")
		if changed == 0 {
			break
		}
	}
	return d
}

func resolveDistance(t *tablebase.Table, d Distances, e tablebase.Entry) (int, bool) {
	b := board.FromUint64(e.Key)
	winner := piece.PlayerOne
	if e.Outcome == tablebase.WinP2 {
		winner = piece.PlayerTwo
	}
	winnerToMove := b.SideToMove() == winner
	best := -1
	for _, m := range movegen.GenAll(b) {
		dist, isWin, known := childDistance(t, d, b.Child(m), winner)
		if winnerToMove {
			if isWin && known && (best < 0 || dist < best) {
				best = dist
			}
			continue
		}
		// The loser picks the longest resistance, so every winning reply
		// must be known first.
		if isWin && !known {
			return 0, false
		}
		if isWin && dist > best {
			best = dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return best + 1, true
}

// Line follows best play from b using d: the winner takes the shortest
// win, the loser the longest loss. It stops when the game ends, the
// position is not in d, or after maxPlies.
func Line(t *tablebase.Table, d Distances, b board.Board, maxPlies int) []move.Move {
	var line []move.Move
	for len(line) < maxPlies && b.Winner() == piece.NoPlayer {
		o, ok := t.Peek(symmetry.Canonical(b))
		if !ok || o == tablebase.Draw {
			break
		}
		winner := piece.PlayerOne
		if o == tablebase.WinP2 {
			winner = piece.PlayerTwo
		}
		winnerToMove := b.SideToMove() == winner
		var chosen move.Move
		best := -1
		for _, m := range movegen.GenAll(b) {
			dist, isWin, known := childDistance(t, d, b.Child(m), winner)
			if !isWin || !known {
				continue
			}
			if best < 0 || (winnerToMove && dist < best) || (!winnerToMove && dist > best) {
				best, chosen = dist, m
			}
		}
		if best < 0 {
			break
		}
		line = append(line, chosen)
		b.Apply(chosen)
	}
	return line
}

// SummarizeDistances reports the spread of d and the line from the
// initial position, if it is decided.
func SummarizeDistances(t *tablebase.Table, d Distances, maxPlies int) *DistanceStats {
	ds := &DistanceStats{Solved: len(d), Initial: -1}
	for _, e := range t.Entries() {
		if e.Outcome == tablebase.Draw {
			continue
		}
		dist, ok := d[e.Key]
		if !ok {
			ds.Unsolved++
			continue
		}
		if dist > ds.Max {
			ds.Max = dist
		}
	}
	root := board.New()
	if dist, ok := d[symmetry.Canonical(root)]; ok {
		ds.Initial = dist
		for _, m := range Line(t, d, root, maxPlies) {
			ds.Line = append(ds.Line, m.ShortDescription())
		}
	}
	return ds
}
