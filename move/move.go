package move

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/domino14/gobblet/piece"
)

// MoveType is the kind of move: a placement from reserve or a slide of a
// piece already on the board.
type MoveType uint8

const (
	MoveTypePlace MoveType = iota
	MoveTypeSlide
)

func (t MoveType) String() string {
	if t == MoveTypeSlide {
		return "slide"
	}
	return "place"
}

var ErrBadMoveString = errors.New("unparseable move")

// Move is a tagged union of Place(size, to) and Slide(from, to). For a
// placement, from is unused; for a slide, size is unused (the moved size
// is whatever is on top of from when the move is applied).
type Move struct {
	action MoveType
	size   piece.Size
	from   piece.Pos
	to     piece.Pos
}

// NewPlaceMove places a reserve piece of the given size on to.
func NewPlaceMove(size piece.Size, to piece.Pos) Move {
	return Move{action: MoveTypePlace, size: size, to: to}
}

// NewSlideMove lifts the visible piece at from and sets it down on to.
func NewSlideMove(from, to piece.Pos) Move {
	return Move{action: MoveTypeSlide, from: from, to: to}
}

func (m Move) Action() MoveType { return m.action }
func (m Move) IsPlace() bool    { return m.action == MoveTypePlace }
func (m Move) Size() piece.Size { return m.size }
func (m Move) From() piece.Pos  { return m.from }
func (m Move) To() piece.Pos    { return m.to }

// ShortDescription is the compact notation used in logs and the shell:
// "M4" places a medium on cell 4, "2-5" slides from 2 to 5.
func (m Move) ShortDescription() string {
	if m.action == MoveTypePlace {
		return fmt.Sprintf("%c%d", m.size.Letter(), m.to)
	}
	return fmt.Sprintf("%d-%d", m.from, m.to)
}

func (m Move) String() string {
	return m.ShortDescription()
}

var rePlace, reSlide *regexp.Regexp

func init() {
	rePlace = regexp.MustCompile(`^(?P<size>[SMLsml])\s*(?P<to>[0-8])$`)
	reSlide = regexp.MustCompile(`^(?P<from>[0-8])\s*(?:-|>|->)\s*(?P<to>[0-8])$`)
}

// Parse reads the ShortDescription notation back into a move. It only
// checks syntax; whether the move is legal is up to the caller.
func Parse(s string) (Move, error) {
	if sm := rePlace.FindStringSubmatch(s); sm != nil {
		size, _ := piece.SizeFromLetter(sm[1][0])
		to, _ := strconv.Atoi(sm[2])
		return NewPlaceMove(size, piece.Pos(to)), nil
	}
	if sm := reSlide.FindStringSubmatch(s); sm != nil {
		from, _ := strconv.Atoi(sm[1])
		to, _ := strconv.Atoi(sm[2])
		if from == to {
			return Move{}, fmt.Errorf("%w: %q slides onto its own cell", ErrBadMoveString, s)
		}
		return NewSlideMove(piece.Pos(from), piece.Pos(to)), nil
	}
	return Move{}, fmt.Errorf("%w: %q", ErrBadMoveString, s)
}

// Undo carries what is needed to reverse a move in O(1): the move itself,
// the piece that was visible at the destination before the move (now
// covered), the piece that became visible at the source (slides only), and
// the size of the piece that moved.
type Undo struct {
	Move      Move
	Captured  piece.Piece
	Revealed  piece.Piece
	MovedSize piece.Size
}

func (u Undo) String() string {
	return fmt.Sprintf("undo(%s captured=%s revealed=%s size=%s)",
		u.Move.ShortDescription(), u.Captured, u.Revealed, u.MovedSize)
}
