package board

import (
	"fmt"
	"strings"

	"github.com/domino14/gobblet/piece"
)

func cellText(st []piece.Piece) string {
	if len(st) == 0 {
		return "."
	}
	parts := make([]string, 0, len(st))
	for i := len(st) - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf("%d%c", st[i].Owner, st[i].Size.Letter()))
	}
	return strings.Join(parts, "/")
}

func reserveText(r [piece.NumSizes]int) string {
	return fmt.Sprintf("S%d M%d L%d", r[piece.Small], r[piece.Medium], r[piece.Large])
}

// ToDisplayText renders the board one row per line. Each cell lists its
// stack from the visible piece down, e.g. "2L/1S" is a P2 large covering a
// P1 small.
func (b Board) ToDisplayText() string {
	var sb strings.Builder
	sep := "+-----------+-----------+-----------+\n"
	sb.WriteString(sep)
	for row := 0; row < 3; row++ {
		sb.WriteString("|")
		for col := 0; col < 3; col++ {
			pos := piece.PosFromRowCol(row, col)
			fmt.Fprintf(&sb, " %d:%-8s|", pos, cellText(b.Stack(pos)))
		}
		sb.WriteString("\n")
		sb.WriteString(sep)
	}
	fmt.Fprintf(&sb, "to move: %s\n", b.SideToMove())
	fmt.Fprintf(&sb, "reserves: P1 %s | P2 %s\n",
		reserveText(b.Reserves(piece.PlayerOne)), reserveText(b.Reserves(piece.PlayerTwo)))
	if w := b.Winner(); w != piece.NoPlayer {
		fmt.Fprintf(&sb, "winner: %s\n", w)
	}
	return sb.String()
}

func (b Board) String() string {
	return fmt.Sprintf("%#016x", uint64(b))
}
