package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the placement field of the initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// ParseFEN builds a board and the side to move from a full FEN string.
// Moved flags are derived from home squares and the FEN castling rights.
func ParseFEN(fen string) (*Board, Color, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, White, fmt.Errorf("parse fen: %w", err)
	}
	pos := nchess.NewGame(opt).Position()
	rights := pos.CastleRights()

	b := New()
	for nsq, np := range pos.Board().SquareMap() {
		t, ok := fromNativeType(np.Type())
		if !ok {
			continue
		}
		c := fromNativeColor(np.Color())
		sq := Sq(int(nsq.File()), 7-int(nsq.Rank()))
		// Only pawns, kings and rooks carry a home-square rule; the rest start unmoved.
		p := Piece{Type: t, Color: c}
		switch t {
		case Pawn:
			p.Moved = sq.Rank != PawnRank(c)
		case King:
			home := sq == Sq(4, HomeRank(c))
			nc := toNativeColor(c)
			p.Moved = !home || !(rights.CanCastle(nc, nchess.KingSide) || rights.CanCastle(nc, nchess.QueenSide))
		case Rook:
			nc := toNativeColor(c)
			switch sq {
			case Sq(7, HomeRank(c)):
				p.Moved = !rights.CanCastle(nc, nchess.KingSide)
			case Sq(0, HomeRank(c)):
				p.Moved = !rights.CanCastle(nc, nchess.QueenSide)
			default:
				p.Moved = true
			}
		}
		b.Place(sq, p)
	}
	return b, fromNativeColor(pos.Turn()), nil
}

// FEN renders the placement field of the board.
func (b *Board) FEN() string {
	m := make(map[nchess.Square]nchess.Piece, len(b.squares))
	for sq, p := range b.squares {
		nsq := nchess.NewSquare(nchess.File(sq.File), nchess.Rank(7-sq.Rank))
		m[nsq] = nchess.NewPiece(toNativeType(p.Type), toNativeColor(p.Color))
	}
	return nchess.NewBoard(m).String()
}

// PositionFEN renders a full FEN with turn to move. Castling rights follow the
// Moved flags; en passant and the move counters are not tracked.
func (b *Board) PositionFEN(turn Color) string {
	rights := ""
	for _, c := range []Color{White, Black} {
		k, ok := b.PieceAt(Sq(4, HomeRank(c)))
		if !ok || k.Type != King || k.Color != c || k.Moved {
			continue
		}
		for _, side := range []struct {
			file int
			sym  string
		}{{7, "K"}, {0, "Q"}} {
			r, ok := b.PieceAt(Sq(side.file, HomeRank(c)))
			if !ok || r.Type != Rook || r.Color != c || r.Moved {
				continue
			}
			if c == White {
				rights += side.sym
			} else {
				rights += strings.ToLower(side.sym)
			}
		}
	}
	if rights == "" {
		rights = "-"
	}
	side := "w"
	if turn == Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s %s - 0 1", b.FEN(), side, rights)
}

func fromNativeColor(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}

func toNativeColor(c Color) nchess.Color {
	if c == Black {
		return nchess.Black
	}
	return nchess.White
}

func fromNativeType(t nchess.PieceType) (PieceType, bool) {
	switch t {
	case nchess.Pawn:
		return Pawn, true
	case nchess.Knight:
		return Knight, true
	case nchess.Bishop:
		return Bishop, true
	case nchess.Rook:
		return Rook, true
	case nchess.Queen:
		return Queen, true
	case nchess.King:
		return King, true
	default:
		return Pawn, false
	}
}

func toNativeType(t PieceType) nchess.PieceType {
	switch t {
	case Knight:
		return nchess.Knight
	case Bishop:
		return nchess.Bishop
	case Rook:
		return nchess.Rook
	case Queen:
		return nchess.Queen
	case King:
		return nchess.King
	default:
		return nchess.Pawn
	}
}
