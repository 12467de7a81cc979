package game

import (
	"fmt"

	"clickchess/internal/board"
	"clickchess/internal/movegen"
)

// Special marks plies with side effects beyond the piece relocation.
type Special uint8

const (
	SpecialNone Special = iota
	SpecialCastle
	SpecialEnPassant
)

func (s Special) String() string {
	switch s {
	case SpecialCastle:
		return "castle"
	case SpecialEnPassant:
		return "en-passant"
	default:
		return "none"
	}
}

func (s Special) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Special) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*s = SpecialNone
	case "castle":
		*s = SpecialCastle
	case "en-passant":
		*s = SpecialEnPassant
	default:
		return fmt.Errorf("game: unknown special move %q", b)
	}
	return nil
}

// Ply records one half-move. Snapshot holds the occupancy after the move is
// complete; for a promotion it is filled once the new type is chosen.
type Ply struct {
	From      board.Square                 `json:"from"`
	To        board.Square                 `json:"to"`
	Piece     board.Piece                  `json:"piece"`
	Player    string                       `json:"player"`
	Captured  *board.Piece                 `json:"captured,omitempty"`
	Special   Special                      `json:"special,omitempty"`
	Promotion *board.PieceType             `json:"promotion,omitempty"`
	Snapshot  map[board.Square]board.Piece `json:"snapshot"`
}

// Color is the side that made the move.
func (p Ply) Color() board.Color { return p.Piece.Color }

func (p Ply) lastMove() *movegen.LastMove {
	return &movegen.LastMove{From: p.From, To: p.To, Piece: p.Piece}
}

func clonePlies(in []Ply) []Ply {
	if in == nil {
		return nil
	}
	out := make([]Ply, len(in))
	for i, p := range in {
		out[i] = p
		if p.Captured != nil {
			c := *p.Captured
			out[i].Captured = &c
		}
		if p.Promotion != nil {
			t := *p.Promotion
			out[i].Promotion = &t
		}
		if p.Snapshot != nil {
			out[i].Snapshot = make(map[board.Square]board.Piece, len(p.Snapshot))
			for sq, pc := range p.Snapshot {
				out[i].Snapshot[sq] = pc
			}
		}
	}
	return out
}

// applyMove relocates the piece on from to to and performs the rook hop or
// en passant removal. It returns the captured piece, if any.
func applyMove(b *board.Board, from, to board.Square, special Special) *board.Piece {
	mover, _ := b.PieceAt(from)
	var captured *board.Piece
	if c, ok := b.Move(from, to); ok {
		captured = &c
	}
	switch special {
	case SpecialCastle:
		rf, rt := movegen.CastlingRook(from, to)
		b.Move(rf, rt)
	case SpecialEnPassant:
		if c, ok := b.Capture(movegen.EnPassantVictim(mover.Color, to)); ok {
			captured = &c
		}
	}
	return captured
}

// Replay applies plies in order to a copy of initial and returns the result.
func Replay(initial *board.Board, plies []Ply) (*board.Board, error) {
	b := initial.Clone()
	for i, p := range plies {
		pc, ok := b.PieceAt(p.From)
		if !ok {
			return nil, fmt.Errorf("replay ply %d: no piece on %v", i, p.From)
		}
		if pc.Type != p.Piece.Type || pc.Color != p.Piece.Color {
			return nil, fmt.Errorf("replay ply %d: expected %v on %v, found %v", i, p.Piece, p.From, pc)
		}
		applyMove(b, p.From, p.To, p.Special)
		if p.Promotion != nil {
			b.SetType(p.To, *p.Promotion)
		}
	}
	return b, nil
}
