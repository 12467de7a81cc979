// Package movegen computes destination squares for a piece on a board.
// It only reads the board; callers apply moves themselves.
package movegen

import "clickchess/internal/board"

// View is the read-only board surface the generator needs.
type View interface {
	PieceAt(sq board.Square) (board.Piece, bool)
}

type ray struct{ df, dr int }

var (
	up        = ray{0, -1}
	down      = ray{0, 1}
	left      = ray{-1, 0}
	right     = ray{1, 0}
	upLeft    = ray{-1, -1}
	upRight   = ray{1, -1}
	downRight = ray{1, 1}
	downLeft  = ray{-1, 1}

	rookRays   = []ray{up, down, left, right}
	bishopRays = []ray{upLeft, upRight, downRight, downLeft}
	queenRays  = append(append([]ray{}, rookRays...), bishopRays...)
	kingRays   = []ray{up, right, down, left, upLeft, upRight, downLeft, downRight}

	knightOffsets = []ray{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
)

type slider struct {
	rays  []ray
	limit int
}

var sliders = map[board.PieceType]slider{
	board.Rook:   {rookRays, 7},
	board.Bishop: {bishopRays, 7},
	board.Queen:  {queenRays, 7},
	board.King:   {kingRays, 1},
}

// Destinations returns the squares p may move to from origin, ignoring check
// and special moves. The order is deterministic: rays in table order, each walked
// outward; knight offsets in table order; pawn pushes before captures.
func Destinations(v View, p board.Piece, origin board.Square) []board.Square {
	if !origin.Valid() {
		return nil
	}
	if _, ok := v.PieceAt(origin); !ok {
		return nil
	}
	switch p.Type {
	case board.Knight:
		return knightMoves(v, p, origin)
	case board.Pawn:
		return pawnMoves(v, p, origin)
	default:
		s, ok := sliders[p.Type]
		if !ok {
			return nil
		}
		var out []board.Square
		for _, r := range s.rays {
			out = walk(v, p, origin, r, s.limit, out)
		}
		return out
	}
}

func walk(v View, p board.Piece, origin board.Square, r ray, limit int, out []board.Square) []board.Square {
	sq := origin
	for i := 0; i < limit; i++ {
		sq = sq.Offset(r.df, r.dr)
		if !sq.Valid() {
			return out
		}
		occ, ok := v.PieceAt(sq)
		if !ok {
			out = append(out, sq)
			continue
		}
		if occ.Color != p.Color {
			out = append(out, sq)
		}
		return out
	}
	return out
}

func knightMoves(v View, p board.Piece, origin board.Square) []board.Square {
	var out []board.Square
	for _, o := range knightOffsets {
		sq := origin.Offset(o.df, o.dr)
		if !sq.Valid() {
			continue
		}
		if occ, ok := v.PieceAt(sq); ok && occ.Color == p.Color {
			continue
		}
		out = append(out, sq)
	}
	return out
}

func pawnMoves(v View, p board.Piece, origin board.Square) []board.Square {
	var out []board.Square
	dir := board.Forward(p.Color)

	one := origin.Offset(0, dir)
	if one.Valid() && empty(v, one) {
		out = append(out, one)
		two := origin.Offset(0, 2*dir)
		if origin.Rank == board.PawnRank(p.Color) && two.Valid() && empty(v, two) {
			out = append(out, two)
		}
	}
	for _, df := range []int{1, -1} {
		sq := origin.Offset(df, dir)
		if !sq.Valid() {
			continue
		}
		if occ, ok := v.PieceAt(sq); ok && occ.Color != p.Color {
			out = append(out, sq)
		}
	}
	return out
}

func empty(v View, sq board.Square) bool {
	_, ok := v.PieceAt(sq)
	return !ok
}

// Contains reports whether sq is in list.
func Contains(list []board.Square, sq board.Square) bool {
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}
