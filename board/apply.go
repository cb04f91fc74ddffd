package board

import "github.com/domino14/gobblet/move"

// Apply plays m for the side to move and returns what Undo needs to take it
// back. m must come from legal move generation; Apply does not check it.
func (b *Board) Apply(m move.Move) move.Undo {
	mover := b.SideToMove()
	to := m.To()
	if m.IsPlace() {
		u := move.Undo{Move: m, Captured: b.Top(to), MovedSize: m.Size()}
		b.PushPiece(to, mover, m.Size())
		b.SwitchSide()
		return u
	}
	from := m.From()
	lifted := b.PopTop(from)
	u := move.Undo{
		Move:      m,
		Revealed:  b.Top(from),
		Captured:  b.Top(to),
		MovedSize: lifted.Size,
	}
	b.PushPiece(to, mover, lifted.Size)
	b.SwitchSide()
	return u
}

// Undo reverses a move made by Apply. Covered pieces were never removed
// from their layers, so only the layer that Apply wrote needs clearing and,
// for a slide, the source layer needs restoring.
func (b *Board) Undo(u move.Undo) {
	b.SwitchSide()
	b.ClearLayer(u.Move.To(), u.MovedSize)
	if !u.Move.IsPlace() {
		b.PushPiece(u.Move.From(), b.SideToMove(), u.MovedSize)
	}
}

// Child returns a copy of b with m applied.
func (b Board) Child(m move.Move) Board {
	b.Apply(m)
	return b
}
