package movegen

import "clickchess/internal/board"

// LastMove describes the previous half-move, used for en passant.
type LastMove struct {
	From  board.Square
	To    board.Square
	Piece board.Piece
}

// CastlingTargets returns the king destinations for castling from origin:
// kingside first, then queenside. Only unmoved kings on their home square
// with an unmoved own rook and an empty path qualify.
func CastlingTargets(v View, origin board.Square) []board.Square {
	k, ok := v.PieceAt(origin)
	if !ok || k.Type != board.King || k.Moved {
		return nil
	}
	rank := board.HomeRank(k.Color)
	if origin != board.Sq(4, rank) {
		return nil
	}
	var out []board.Square
	if rookReady(v, board.Sq(7, rank), k.Color) && allEmpty(v, rank, 5, 6) {
		out = append(out, board.Sq(6, rank))
	}
	if rookReady(v, board.Sq(0, rank), k.Color) && allEmpty(v, rank, 1, 3) {
		out = append(out, board.Sq(2, rank))
	}
	return out
}

// CastlingRook returns the rook relocation implied by a king castling onto dest.
// Kingside: the rook right of dest goes one square left of it. Queenside: the rook
// two files left of dest goes one square right of it.
func CastlingRook(origin, dest board.Square) (from, to board.Square) {
	if dest.File > origin.File {
		return dest.Offset(1, 0), dest.Offset(-1, 0)
	}
	return dest.Offset(-2, 0), dest.Offset(1, 0)
}

// EnPassantTargets returns the en passant capture square for the pawn on origin,
// available only immediately after an opposing pawn's double step beside it.
func EnPassantTargets(v View, origin board.Square, last *LastMove) []board.Square {
	if last == nil {
		return nil
	}
	p, ok := v.PieceAt(origin)
	if !ok || p.Type != board.Pawn {
		return nil
	}
	if last.Piece.Type != board.Pawn || last.Piece.Color == p.Color {
		return nil
	}
	if abs(last.To.Rank-last.From.Rank) != 2 || last.To.File != last.From.File {
		return nil
	}
	if last.To.Rank != origin.Rank || abs(last.To.File-origin.File) != 1 {
		return nil
	}
	if victim, ok := v.PieceAt(last.To); !ok || victim.Type != board.Pawn || victim.Color == p.Color {
		return nil
	}
	target := board.Sq(last.To.File, origin.Rank+board.Forward(p.Color))
	if !target.Valid() || !empty(v, target) {
		return nil
	}
	return []board.Square{target}
}

// EnPassantVictim is the square of the pawn removed when c captures en passant onto dest.
func EnPassantVictim(c board.Color, dest board.Square) board.Square {
	return dest.Offset(0, -board.Forward(c))
}

func rookReady(v View, sq board.Square, c board.Color) bool {
	r, ok := v.PieceAt(sq)
	return ok && r.Type == board.Rook && r.Color == c && !r.Moved
}

func allEmpty(v View, rank, fromFile, toFile int) bool {
	for f := fromFile; f <= toFile; f++ {
		if !empty(v, board.Sq(f, rank)) {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
