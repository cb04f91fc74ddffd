package solver

import (
	"slices"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

// Evaluate resolves b against a solved table without searching. Won
// positions and positions with no legal moves are decided directly; the
// rest need a table entry. The bool is false when the value is unknown.
func Evaluate(t *tablebase.Table, b board.Board) (tablebase.Outcome, bool) {
	if w := b.Winner(); w != piece.NoPlayer {
		return tablebase.OutcomeForWinner(w), true
	}
	if o, ok := t.Peek(symmetry.Canonical(b)); ok {
		return o, true
	}
	if _, ok := movegen.NewGenerator(b).Next(); !ok {
		return tablebase.Loss(b.SideToMove()), true
	}
	return tablebase.Unknown, false
}

// ScoredMove is a legal move with the value of the position it leads to.
type ScoredMove struct {
	Move    move.Move
	Outcome tablebase.Outcome
	Known   bool
	// Score is from the mover's point of view: 1 win, 0 draw, -1 loss.
	Score int
}

// BestMoves ranks every legal move of b from the mover's point of view:
// wins, then draws, then losses, then moves whose value is unknown. Ties
// keep generation order.
func BestMoves(t *tablebase.Table, b board.Board) []ScoredMove {
	mover := b.SideToMove()
	moves := movegen.GenAll(b)
	scored := make([]ScoredMove, len(moves))
	for i, m := range moves {
		o, known := Evaluate(t, b.Child(m))
		sm := ScoredMove{Move: m, Outcome: o, Known: known, Score: -2}
		if known {
			sm.Score = o.Relative(mover)
		}
		scored[i] = sm
	}
	slices.SortStableFunc(scored, func(x, y ScoredMove) int {
		return y.Score - x.Score
	})
	return scored
}
