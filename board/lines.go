package board

import "github.com/domino14/gobblet/piece"

// Line is three cells in a row, column or diagonal.
type Line [3]piece.Pos

// Lines are the eight winning lines: rows, then columns, then the main and
// anti diagonals. Code that needs "the first completed line" relies on this
// order.
var Lines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

var lineMasks [8]uint16

func init() {
	for i, l := range Lines {
		for _, pos := range l {
			lineMasks[i] |= 1 << pos
		}
	}
}

// Contains reports whether pos is one of the line's cells.
func (l Line) Contains(pos piece.Pos) bool {
	return l[0] == pos || l[1] == pos || l[2] == pos
}

// VisibilityMasks returns, for each player, a 9-bit mask of the cells where
// that player's piece is the visible one.
func (b Board) VisibilityMasks() (p1, p2 uint16) {
	for pos := piece.Pos(0); pos < piece.NumCells; pos++ {
		switch b.Top(pos).Owner {
		case piece.PlayerOne:
			p1 |= 1 << pos
		case piece.PlayerTwo:
			p2 |= 1 << pos
		}
	}
	return p1, p2
}

func (b Board) visibleMask(p piece.Player) uint16 {
	p1, p2 := b.VisibilityMasks()
	if p == piece.PlayerOne {
		return p1
	}
	return p2
}

// WinningLine returns the first line (in Lines order) whose three visible
// pieces all belong to p. Gobbled pieces never count.
func (b Board) WinningLine(p piece.Player) (Line, bool) {
	mask := b.visibleMask(p)
	for i, lm := range lineMasks {
		if mask&lm == lm {
			return Lines[i], true
		}
	}
	return Line{}, false
}

// HasWon reports whether p owns every visible piece of some line.
func (b Board) HasWon(p piece.Player) bool {
	_, ok := b.WinningLine(p)
	return ok
}

// Winner returns the player with a completed line, or piece.NoPlayer. If
// both players have one, P1 is reported.
func (b Board) Winner() piece.Player {
	p1, p2 := b.VisibilityMasks()
	for _, lm := range lineMasks {
		if p1&lm == lm {
			return piece.PlayerOne
		}
	}
	for _, lm := range lineMasks {
		if p2&lm == lm {
			return piece.PlayerTwo
		}
	}
	return piece.NoPlayer
}
