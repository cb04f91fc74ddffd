// Package piece holds the small value types shared by the board, move and
// search packages: players, piece sizes, cell positions and pieces.
package piece

import "fmt"

// Player is the owner of a piece. The zero value means "nobody"; it is also
// the 2-bit owner code stored in each size layer of a packed cell.
type Player uint8

const (
	NoPlayer Player = iota
	PlayerOne
	PlayerTwo
)

// Opponent returns the other player. NoPlayer has no opponent and maps to
// itself.
func (p Player) Opponent() Player {
	switch p {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	}
	return NoPlayer
}

func (p Player) String() string {
	switch p {
	case PlayerOne:
		return "P1"
	case PlayerTwo:
		return "P2"
	}
	return "--"
}

// Size is a piece size. It doubles as the layer index inside a cell.
type Size uint8

const (
	Small Size = iota
	Medium
	Large
)

// NumSizes is the number of distinct piece sizes.
const NumSizes = 3

// PiecesPerSize is how many pieces of each size a player starts with.
const PiecesPerSize = 2

// Sizes lists every size, smallest first.
var Sizes = [NumSizes]Size{Small, Medium, Large}

// CanGobble reports whether a piece of size s may cover a piece of size other.
func (s Size) CanGobble(other Size) bool {
	return s > other
}

// Letter is the one-letter notation for a size.
func (s Size) Letter() byte {
	return "SML"[s]
}

func (s Size) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	}
	return fmt.Sprintf("size(%d)", uint8(s))
}

// SizeFromLetter parses S, M or L (either case).
func SizeFromLetter(c byte) (Size, bool) {
	switch c {
	case 'S', 's':
		return Small, true
	case 'M', 'm':
		return Medium, true
	case 'L', 'l':
		return Large, true
	}
	return 0, false
}

// Pos is a cell index on the 3x3 grid, row-major:
//
//	0 1 2
//	3 4 5
//	6 7 8
type Pos uint8

// NumCells is the number of cells on the board.
const NumCells = 9

// PosFromRowCol builds a Pos from a row and column in [0, 3).
func PosFromRowCol(row, col int) Pos {
	return Pos(row*3 + col)
}

func (p Pos) Row() int { return int(p) / 3 }
func (p Pos) Col() int { return int(p) % 3 }

// Valid reports whether p is on the board.
func (p Pos) Valid() bool { return p < NumCells }

// Piece is a sized piece belonging to a player. The zero value is "no
// piece".
type Piece struct {
	Owner Player
	Size  Size
}

// None is the empty piece.
var None = Piece{}

// Empty reports whether this is the zero piece.
func (p Piece) Empty() bool { return p.Owner == NoPlayer }

func (p Piece) String() string {
	if p.Empty() {
		return "."
	}
	return fmt.Sprintf("%s%c", p.Owner, p.Size.Letter())
}
