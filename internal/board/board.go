package board

import (
	"errors"
	"fmt"
)

// ErrKingCount is returned by Validate when a side does not have exactly one king.
var ErrKingCount = errors.New("board: each side must have exactly one king")

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Board maps squares to pieces and keeps the captured pieces in capture order.
// It does not check legality.
type Board struct {
	squares  map[Square]*Piece
	captured []*Piece
}

// New returns an empty board.
func New() *Board {
	return &Board{squares: make(map[Square]*Piece)}
}

// NewStandard returns the initial position.
func NewStandard() *Board {
	b := New()
	for f := 0; f < 8; f++ {
		for _, c := range []Color{White, Black} {
			b.squares[Sq(f, HomeRank(c))] = &Piece{Type: backRank[f], Color: c}
			b.squares[Sq(f, PawnRank(c))] = &Piece{Type: Pawn, Color: c}
		}
	}
	return b
}

// PieceAt returns a copy of the piece on sq.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	p, ok := b.squares[sq]
	if !ok {
		return Piece{}, false
	}
	return *p, true
}

// Occupied reports whether sq holds a piece.
func (b *Board) Occupied(sq Square) bool {
	_, ok := b.squares[sq]
	return ok
}

// Place puts p on sq, replacing (and discarding) any occupant. It reports
// false and leaves the board unchanged when sq is off the board.
func (b *Board) Place(sq Square, p Piece) bool {
	if !sq.Valid() {
		return false
	}
	np := p
	b.squares[sq] = &np
	return true
}

// Remove takes the piece off sq without recording a capture.
func (b *Board) Remove(sq Square) (Piece, bool) {
	p, ok := b.squares[sq]
	if !ok {
		return Piece{}, false
	}
	delete(b.squares, sq)
	return *p, true
}

// Capture takes the piece off sq and appends it to the captured list.
func (b *Board) Capture(sq Square) (Piece, bool) {
	p, ok := b.squares[sq]
	if !ok {
		return Piece{}, false
	}
	delete(b.squares, sq)
	b.captured = append(b.captured, p)
	return *p, true
}

// Move relocates the piece on from to to, capturing whatever stands on to.
// It returns the captured piece, if any. Moving from an empty square is a no-op.
func (b *Board) Move(from, to Square) (Piece, bool) {
	p, ok := b.squares[from]
	if !ok || from == to {
		return Piece{}, false
	}
	captured, took := b.Capture(to)
	delete(b.squares, from)
	p.Moved = true
	b.squares[to] = p
	return captured, took
}

// SetType changes the type of the piece on sq in place.
func (b *Board) SetType(sq Square, t PieceType) bool {
	p, ok := b.squares[sq]
	if !ok {
		return false
	}
	p.Type = t
	return true
}

// Snapshot returns a copy of the occupancy map.
func (b *Board) Snapshot() map[Square]Piece {
	out := make(map[Square]Piece, len(b.squares))
	for sq, p := range b.squares {
		out[sq] = *p
	}
	return out
}

// Captured returns the captured pieces in capture order.
func (b *Board) Captured() []Piece {
	out := make([]Piece, len(b.captured))
	for i, p := range b.captured {
		out[i] = *p
	}
	return out
}

// Len is the number of pieces on the board.
func (b *Board) Len() int { return len(b.squares) }

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	nb := &Board{squares: make(map[Square]*Piece, len(b.squares))}
	for sq, p := range b.squares {
		np := *p
		nb.squares[sq] = &np
	}
	for _, p := range b.captured {
		np := *p
		nb.captured = append(nb.captured, &np)
	}
	return nb
}

// KingSquare finds c's king. With more than one king the result is arbitrary.
func (b *Board) KingSquare(c Color) (Square, bool) {
	for sq, p := range b.squares {
		if p.Type == King && p.Color == c {
			return sq, true
		}
	}
	return Square{}, false
}

// CountKings returns how many kings of c are on the board.
func (b *Board) CountKings(c Color) int {
	n := 0
	for _, p := range b.squares {
		if p.Type == King && p.Color == c {
			n++
		}
	}
	return n
}

// Squares returns the occupied squares of c in rank-major order.
func (b *Board) Squares(c Color) []Square {
	var out []Square
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p, ok := b.squares[Sq(f, r)]; ok && p.Color == c {
				out = append(out, Sq(f, r))
			}
		}
	}
	return out
}

// Validate checks that each side has exactly one king.
func (b *Board) Validate() error {
	w, k := b.CountKings(White), b.CountKings(Black)
	if w != 1 || k != 1 {
		return fmt.Errorf("%w: white=%d black=%d", ErrKingCount, w, k)
	}
	return nil
}

// Equal reports whether two snapshots hold the same pieces on the same squares.
func Equal(a, b map[Square]Piece) bool {
	if len(a) != len(b) {
		return false
	}
	for sq, p := range a {
		q, ok := b[sq]
		if !ok || q.Type != p.Type || q.Color != p.Color {
			return false
		}
	}
	return true
}
