// Package board implements the packed Gobblet Gobblers position.
//
// A position is a single 64-bit word:
//
//	bits  0-53  nine cells, 6 bits each, cell i at bit 6*i
//	bit   54    side to move (0 = P1, 1 = P2)
//	bits 55-63  always zero
//
// Each 6-bit cell holds three 2-bit layers indexed by piece size (small in
// bits 0-1, medium in 2-3, large in 4-5). A layer holds the owner of the
// piece of that size sitting in the cell (0 = none). Because a larger piece
// can only ever be placed over smaller ones, the visible piece of a cell is
// always its largest non-empty layer and the layers below it are the
// gobbled pieces, in order.
//
// Reserves are never stored. They are derived by counting layers, so the
// board and the reserves cannot disagree.
package board

import (
	"errors"
	"fmt"

	"github.com/domino14/gobblet/piece"
)

const (
	CellBits      = 6
	CellMask      = 0b111111
	LayerMask     = 0b11
	SideToMoveBit = 54

	cellsMask = (uint64(1) << (CellBits * piece.NumCells)) - 1
	validMask = cellsMask | uint64(1)<<SideToMoveBit
)

var ErrInvalidEncoding = errors.New("invalid board encoding")

// Board is a packed position. The zero value is the empty board with P1 to
// move.
type Board uint64

// New returns the initial position.
func New() Board {
	return Board(0)
}

// FromUint64 wraps a raw encoding without checking it.
func FromUint64(v uint64) Board {
	return Board(v)
}

// Decode wraps a raw encoding after checking that it describes a
// reachable-looking board: no stray bits, no layer owner code 3, and no
// player holding more than two pieces of any size on the board.
func Decode(v uint64) (Board, error) {
	if v&^validMask != 0 {
		return 0, fmt.Errorf("%w: stray bits %#x", ErrInvalidEncoding, v&^validMask)
	}
	b := Board(v)
	for pos := piece.Pos(0); pos < piece.NumCells; pos++ {
		for _, sz := range piece.Sizes {
			if b.layer(pos, sz) == LayerMask {
				return 0, fmt.Errorf("%w: bad owner code at cell %d layer %s",
					ErrInvalidEncoding, pos, sz)
			}
		}
	}
	for _, p := range []piece.Player{piece.PlayerOne, piece.PlayerTwo} {
		counts := b.PiecesOnBoard(p)
		for _, sz := range piece.Sizes {
			if counts[sz] > piece.PiecesPerSize {
				return 0, fmt.Errorf("%w: %s has %d %s pieces",
					ErrInvalidEncoding, p, counts[sz], sz)
			}
		}
	}
	return b, nil
}

// Uint64 is the public interchange form of the position.
func (b Board) Uint64() uint64 {
	return uint64(b)
}

// Cell returns the 6 raw bits of a cell.
func (b Board) Cell(pos piece.Pos) uint8 {
	return uint8(uint64(b)>>(uint(pos)*CellBits)) & CellMask
}

// SetCell replaces the 6 raw bits of a cell.
func (b *Board) SetCell(pos piece.Pos, v uint8) {
	shift := uint(pos) * CellBits
	*b = Board((uint64(*b) &^ (uint64(CellMask) << shift)) |
		(uint64(v&CellMask) << shift))
}

func (b Board) layer(pos piece.Pos, sz piece.Size) uint8 {
	return (b.Cell(pos) >> (uint(sz) * 2)) & LayerMask
}

// SideToMove returns the player whose turn it is.
func (b Board) SideToMove() piece.Player {
	if uint64(b)>>SideToMoveBit&1 == 0 {
		return piece.PlayerOne
	}
	return piece.PlayerTwo
}

// SetSideToMove forces the side-to-move bit.
func (b *Board) SetSideToMove(p piece.Player) {
	if p == piece.PlayerTwo {
		*b |= Board(uint64(1) << SideToMoveBit)
	} else {
		*b &^= Board(uint64(1) << SideToMoveBit)
	}
}

// SwitchSide flips the side to move.
func (b *Board) SwitchSide() {
	*b ^= Board(uint64(1) << SideToMoveBit)
}

// Owner returns the owner of the piece of the given size in a cell,
// whether or not it is visible.
func (b Board) Owner(pos piece.Pos, sz piece.Size) piece.Player {
	return piece.Player(b.layer(pos, sz))
}

// Top returns the visible piece of a cell, or piece.None.
func (b Board) Top(pos piece.Pos) piece.Piece {
	cell := b.Cell(pos)
	if l := cell >> 4 & LayerMask; l != 0 {
		return piece.Piece{Owner: piece.Player(l), Size: piece.Large}
	}
	if m := cell >> 2 & LayerMask; m != 0 {
		return piece.Piece{Owner: piece.Player(m), Size: piece.Medium}
	}
	if s := cell & LayerMask; s != 0 {
		return piece.Piece{Owner: piece.Player(s), Size: piece.Small}
	}
	return piece.None
}

// Stack lists the pieces in a cell from the bottom of the stack up. The
// last element is the visible piece.
func (b Board) Stack(pos piece.Pos) []piece.Piece {
	var st []piece.Piece
	for _, sz := range piece.Sizes {
		if o := b.Owner(pos, sz); o != piece.NoPlayer {
			st = append(st, piece.Piece{Owner: o, Size: sz})
		}
	}
	return st
}

// IsEmpty reports whether a cell has no pieces at all.
func (b Board) IsEmpty(pos piece.Pos) bool {
	return b.Cell(pos) == 0
}

// PushPiece writes the owner into one size layer of a cell. It does not
// check legality; callers are expected to use CanPlace first.
func (b *Board) PushPiece(pos piece.Pos, p piece.Player, sz piece.Size) {
	shift := uint(sz) * 2
	cell := b.Cell(pos)
	b.SetCell(pos, (cell&^(LayerMask<<shift))|(uint8(p)<<shift))
}

// ClearLayer empties one size layer of a cell.
func (b *Board) ClearLayer(pos piece.Pos, sz piece.Size) {
	b.SetCell(pos, b.Cell(pos)&^(LayerMask<<(uint(sz)*2)))
}

// PopTop removes and returns the visible piece of a cell. An empty cell
// yields piece.None and is left untouched.
func (b *Board) PopTop(pos piece.Pos) piece.Piece {
	top := b.Top(pos)
	if !top.Empty() {
		b.ClearLayer(pos, top.Size)
	}
	return top
}

// CanPlace reports whether a piece of size sz may be set down on pos: the
// cell is empty or its visible piece is strictly smaller.
func (b Board) CanPlace(sz piece.Size, pos piece.Pos) bool {
	top := b.Top(pos)
	return top.Empty() || sz.CanGobble(top.Size)
}

// PiecesOnBoard counts p's pieces per size, visible or gobbled.
func (b Board) PiecesOnBoard(p piece.Player) [piece.NumSizes]int {
	var counts [piece.NumSizes]int
	for pos := piece.Pos(0); pos < piece.NumCells; pos++ {
		cell := b.Cell(pos)
		for _, sz := range piece.Sizes {
			if piece.Player(cell>>(uint(sz)*2)&LayerMask) == p {
				counts[sz]++
			}
		}
	}
	return counts
}

// Reserves returns how many pieces of each size p has not yet placed.
func (b Board) Reserves(p piece.Player) [piece.NumSizes]int {
	on := b.PiecesOnBoard(p)
	var r [piece.NumSizes]int
	for _, sz := range piece.Sizes {
		r[sz] = piece.PiecesPerSize - on[sz]
	}
	return r
}

// NumPieces is the total number of pieces on the board, both players.
func (b Board) NumPieces() int {
	n := 0
	for pos := piece.Pos(0); pos < piece.NumCells; pos++ {
		cell := b.Cell(pos)
		for _, sz := range piece.Sizes {
			if cell>>(uint(sz)*2)&LayerMask != 0 {
				n++
			}
		}
	}
	return n
}
