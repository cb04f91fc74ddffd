// Package symmetry canonicalizes positions under the eight symmetries of
// the square (the dihedral group D4). Symmetric positions have identical
// game-theoretic structure, so the tablebase only stores one of them: the
// numerically smallest encoding.
package symmetry

import (
	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/piece"
)

// NumTransforms is the size of the symmetry group.
const NumTransforms = 8

// Transform identifies one symmetry.
type Transform int

const (
	Identity Transform = iota
	Rotate90
	Rotate180
	Rotate270
	ReflectHorizontal
	ReflectVertical
	ReflectMainDiagonal
	ReflectAntiDiagonal
)

// permutations[t][newPos] is the cell whose contents move to newPos.
var permutations = [NumTransforms][piece.NumCells]piece.Pos{
	{0, 1, 2, 3, 4, 5, 6, 7, 8},
	{6, 3, 0, 7, 4, 1, 8, 5, 2},
	{8, 7, 6, 5, 4, 3, 2, 1, 0},
	{2, 5, 8, 1, 4, 7, 0, 3, 6},
	{2, 1, 0, 5, 4, 3, 8, 7, 6},
	{6, 7, 8, 3, 4, 5, 0, 1, 2},
	{0, 3, 6, 1, 4, 7, 2, 5, 8},
	{8, 5, 2, 7, 4, 1, 6, 3, 0},
}

const sideToMove = uint64(1) << board.SideToMoveBit

func (t Transform) String() string {
	return [...]string{"identity", "rot90", "rot180", "rot270",
		"flip-h", "flip-v", "flip-diag", "flip-antidiag"}[t]
}

// Source returns the cell whose contents land on newPos under t.
func (t Transform) Source(newPos piece.Pos) piece.Pos {
	return permutations[t][newPos]
}

// Image returns where the contents of oldPos land under t.
func (t Transform) Image(oldPos piece.Pos) piece.Pos {
	for np, op := range permutations[t] {
		if op == oldPos {
			return piece.Pos(np)
		}
	}
	return oldPos
}

// Apply relocates every cell of b under t. The side to move is kept (a
// symmetry never swaps players).
func (t Transform) Apply(b board.Board) board.Board {
	v := b.Uint64()
	var out uint64
	for np, op := range permutations[t] {
		cell := (v >> (uint(op) * board.CellBits)) & board.CellMask
		out |= cell << (uint(np) * board.CellBits)
	}
	return board.FromUint64(out | v&sideToMove)
}

// All returns the encodings of b under every transform, in Transform order.
func All(b board.Board) [NumTransforms]uint64 {
	var out [NumTransforms]uint64
	for t := Identity; t < NumTransforms; t++ {
		out[t] = t.Apply(b).Uint64()
	}
	return out
}

// Canonical returns the smallest encoding among b's symmetric images.
func Canonical(b board.Board) uint64 {
	lo := b.Uint64()
	for t := Rotate90; t < NumTransforms; t++ {
		if v := t.Apply(b).Uint64(); v < lo {
			lo = v
		}
	}
	return lo
}

// CanonicalBoard is Canonical as a board, together with the transform that
// produced it.
func CanonicalBoard(b board.Board) (board.Board, Transform) {
	best, bt := b, Identity
	for t := Rotate90; t < NumTransforms; t++ {
		if c := t.Apply(b); c.Uint64() < best.Uint64() {
			best, bt = c, t
		}
	}
	return best, bt
}
