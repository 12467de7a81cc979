package movegen

import "clickchess/internal/board"

// Attacked reports whether any piece of color by attacks sq.
func Attacked(v View, sq board.Square, by board.Color) bool {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			from := board.Sq(f, r)
			p, ok := v.PieceAt(from)
			if !ok || p.Color != by {
				continue
			}
			if p.Type == board.Pawn {
				dir := board.Forward(by)
				if sq == from.Offset(1, dir) || sq == from.Offset(-1, dir) {
					return true
				}
				continue
			}
			if Contains(Destinations(v, p, from), sq) {
				return true
			}
		}
	}
	return false
}

// InCheck reports whether c's king is attacked. A side without a king is never in check.
func InCheck(b *board.Board, c board.Color) bool {
	k, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	return Attacked(b, k, c.Opposite())
}

// ExposesKing reports whether moving the piece on from to to would leave its own
// king attacked. enPassant marks the move as an en passant capture.
func ExposesKing(b *board.Board, from, to board.Square, enPassant bool) bool {
	p, ok := b.PieceAt(from)
	if !ok {
		return false
	}
	trial := b.Clone()
	trial.Move(from, to)
	if enPassant {
		trial.Remove(EnPassantVictim(p.Color, to))
	}
	return InCheck(trial, p.Color)
}

// SafeCastle reports whether the king on origin may castle onto dest without
// starting in, passing through, or landing on an attacked square.
func SafeCastle(b *board.Board, origin, dest board.Square) bool {
	k, ok := b.PieceAt(origin)
	if !ok {
		return false
	}
	enemy := k.Color.Opposite()
	if Attacked(b, origin, enemy) {
		return false
	}
	step := 1
	if dest.File < origin.File {
		step = -1
	}
	if Attacked(b, origin.Offset(step, 0), enemy) {
		return false
	}
	return !ExposesKing(b, origin, dest, false)
}

// Filter drops destinations that would leave the mover's king attacked.
func Filter(b *board.Board, origin board.Square, dests, castling, enPassant []board.Square) []board.Square {
	var out []board.Square
	for _, d := range dests {
		if Contains(castling, d) {
			if SafeCastle(b, origin, d) {
				out = append(out, d)
			}
			continue
		}
		if !ExposesKing(b, origin, d, Contains(enPassant, d)) {
			out = append(out, d)
		}
	}
	return out
}

// All returns every destination for the piece on origin, special moves included,
// optionally filtered for king safety. The second and third results are the
// castling and en passant subsets.
func All(b *board.Board, origin board.Square, last *LastMove, kingSafety bool) (dests, castling, enPassant []board.Square) {
	p, ok := b.PieceAt(origin)
	if !ok {
		return nil, nil, nil
	}
	dests = Destinations(b, p, origin)
	switch p.Type {
	case board.King:
		castling = CastlingTargets(b, origin)
		dests = append(dests, castling...)
	case board.Pawn:
		enPassant = EnPassantTargets(b, origin, last)
		dests = append(dests, enPassant...)
	}
	if kingSafety {
		dests = Filter(b, origin, dests, castling, enPassant)
	}
	return dests, castling, enPassant
}

// HasLegalMove reports whether c has any king-safe move.
func HasLegalMove(b *board.Board, c board.Color, last *LastMove) bool {
	for _, sq := range b.Squares(c) {
		if d, _, _ := All(b, sq, last, true); len(d) > 0 {
			return true
		}
	}
	return false
}
