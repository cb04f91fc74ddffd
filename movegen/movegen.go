// Package movegen enumerates legal Gobblet Gobblers moves.
//
// Moves come out in a fixed order: reserve placements first (small, then
// medium, then large; destinations by cell index), then slides (by source
// cell, then destination cell). The solver's move ordering and therefore
// its pruning depend on this order being stable.
//
// The one subtle rule is the reveal rule. Lifting a piece can uncover an
// opponent piece that completes an opponent line. When that happens the
// lifted piece must be set down inside that line (not back where it came
// from), covering one of its cells. If it is too small to cover any other
// cell of the line, that source cell yields no slides at all this turn.
package movegen

import (
	"github.com/samber/lo"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/move"
	"github.com/domino14/gobblet/piece"
)

type phase uint8

const (
	phaseReserve phase = iota
	phaseBoard
	phaseDone
)

// Generator lazily produces the legal moves of one position. It holds a
// copy of the board, so the caller may mutate its own board between calls
// to Next without affecting the enumeration.
type Generator struct {
	b        board.Board
	mover    piece.Player
	reserves [piece.NumSizes]int
	phase    phase

	sizeIdx int
	dest    piece.Pos

	from       piece.Pos
	haveSource bool
	movingSize piece.Size
	restricted bool
	line       board.Line
}

// NewGenerator returns a generator positioned before the first move of b.
func NewGenerator(b board.Board) *Generator {
	g := &Generator{}
	g.Reset(b)
	return g
}

// Reset rewinds the generator onto a new position.
func (g *Generator) Reset(b board.Board) {
	*g = Generator{
		b:        b,
		mover:    b.SideToMove(),
		reserves: b.Reserves(b.SideToMove()),
	}
}

// Next returns the next legal move, or false once the moves are exhausted.
func (g *Generator) Next() (move.Move, bool) {
	for {
		switch g.phase {
		case phaseReserve:
			if m, ok := g.nextPlacement(); ok {
				return m, true
			}
			g.phase = phaseBoard
			g.from = 0
		case phaseBoard:
			if m, ok := g.nextSlide(); ok {
				return m, true
			}
			g.phase = phaseDone
		default:
			return move.Move{}, false
		}
	}
}

func (g *Generator) nextPlacement() (move.Move, bool) {
	for g.sizeIdx < piece.NumSizes {
		sz := piece.Sizes[g.sizeIdx]
		if g.reserves[sz] > 0 {
			for g.dest < piece.NumCells {
				to := g.dest
				g.dest++
				if g.b.CanPlace(sz, to) {
					return move.NewPlaceMove(sz, to), true
				}
			}
		}
		g.sizeIdx++
		g.dest = 0
	}
	return move.Move{}, false
}

func (g *Generator) nextSlide() (move.Move, bool) {
	for g.from < piece.NumCells {
		if !g.haveSource {
			top := g.b.Top(g.from)
			if top.Empty() || top.Owner != g.mover {
				g.from++
				continue
			}
			g.haveSource = true
			g.movingSize = top.Size
			g.dest = 0
			g.line, g.restricted = RevealedLine(g.b, g.from)
		}
		for g.dest < piece.NumCells {
			to := g.dest
			g.dest++
			if to == g.from || !g.b.CanPlace(g.movingSize, to) {
				continue
			}
			if g.restricted && !g.line.Contains(to) {
				continue
			}
			return move.NewSlideMove(g.from, to), true
		}
		g.from++
		g.haveSource = false
		g.restricted = false
	}
	return move.Move{}, false
}

// RevealedLine simulates lifting the visible piece at from. If that
// uncovers a completed line for the opponent of the side to move, the first
// such line (in board.Lines order) is returned.
func RevealedLine(b board.Board, from piece.Pos) (board.Line, bool) {
	opp := b.SideToMove().Opponent()
	b.PopTop(from)
	return b.WinningLine(opp)
}

// GenAll returns every legal move of b in generation order.
func GenAll(b board.Board) []move.Move {
	moves := make([]move.Move, 0, 32)
	g := NewGenerator(b)
	for m, ok := g.Next(); ok; m, ok = g.Next() {
		moves = append(moves, m)
	}
	return moves
}

// SlideDestinations lists the legal destinations for the piece on top of
// from, applying the reveal rule. It is empty if from is not topped by a
// piece of the side to move.
func SlideDestinations(b board.Board, from piece.Pos) []piece.Pos {
	top := b.Top(from)
	if top.Empty() || top.Owner != b.SideToMove() {
		return nil
	}
	line, restricted := RevealedLine(b, from)
	return lo.Filter(allCells[:], func(to piece.Pos, _ int) bool {
		if to == from || !b.CanPlace(top.Size, to) {
			return false
		}
		return !restricted || line.Contains(to)
	})
}

// GenAllIgnoringReveal is move generation without the reveal rule. Only
// tests and diagnostics should want it.
func GenAllIgnoringReveal(b board.Board) []move.Move {
	mover := b.SideToMove()
	res := b.Reserves(mover)
	var moves []move.Move
	for _, sz := range piece.Sizes {
		if res[sz] == 0 {
			continue
		}
		for _, to := range allCells {
			if b.CanPlace(sz, to) {
				moves = append(moves, move.NewPlaceMove(sz, to))
			}
		}
	}
	for _, from := range allCells {
		top := b.Top(from)
		if top.Empty() || top.Owner != mover {
			continue
		}
		for _, to := range allCells {
			if to != from && b.CanPlace(top.Size, to) {
				moves = append(moves, move.NewSlideMove(from, to))
			}
		}
	}
	return moves
}

var allCells = [piece.NumCells]piece.Pos{0, 1, 2, 3, 4, 5, 6, 7, 8}
