// Package tablebase holds proven outcomes keyed by canonical position.
package tablebase

import (
	"fmt"
	"math"

	"github.com/domino14/gobblet/piece"
)

// Outcome is the game-theoretic value of a position from P1's point of
// view. The three proven values are also the on-disk byte.
type Outcome int8

const (
	WinP2 Outcome = -1
	Draw  Outcome = 0
	WinP1 Outcome = 1

	// Unknown is returned by an interrupted solve. It is never stored.
	Unknown Outcome = math.MinInt8
)

// Valid reports whether o is one of the three proven outcomes.
func (o Outcome) Valid() bool {
	return o == WinP1 || o == Draw || o == WinP2
}

func (o Outcome) String() string {
	switch o {
	case WinP1:
		return "win-p1"
	case WinP2:
		return "win-p2"
	case Draw:
		return "draw"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("outcome(%d)", int8(o))
}

// OutcomeForWinner maps a winning player to the outcome it implies.
func OutcomeForWinner(p piece.Player) Outcome {
	switch p {
	case piece.PlayerOne:
		return WinP1
	case piece.PlayerTwo:
		return WinP2
	}
	return Draw
}

// Loss is the outcome in which p loses.
func Loss(p piece.Player) Outcome {
	return OutcomeForWinner(p.Opponent())
}

// Win is the outcome in which p wins.
func Win(p piece.Player) Outcome {
	return OutcomeForWinner(p)
}

// Relative scores o for p: 1 is a win for p, -1 a loss.
func (o Outcome) Relative(p piece.Player) int {
	if p == piece.PlayerTwo {
		return -int(o)
	}
	return int(o)
}

// Better reports whether a is strictly preferable to b for p.
func Better(p piece.Player, a, b Outcome) bool {
	return a.Relative(p) > b.Relative(p)
}
