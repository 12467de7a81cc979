package board

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, ok := ParseColor(string(b))
	if !ok {
		return fmt.Errorf("board: unknown color %q", b)
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}

// PieceType is the kind of a piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

func (t PieceType) String() string {
	switch t {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return fmt.Sprintf("piece(%d)", t)
	}
}

func (t PieceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PieceType) UnmarshalText(b []byte) error {
	v, ok := ParsePieceType(string(b))
	if !ok {
		return fmt.Errorf("board: unknown piece type %q", b)
	}
	*t = v
	return nil
}

// ParsePieceType accepts full names and single-letter symbols in either case.
func ParsePieceType(s string) (PieceType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pawn", "p":
		return Pawn, true
	case "knight", "n":
		return Knight, true
	case "bishop", "b":
		return Bishop, true
	case "rook", "r":
		return Rook, true
	case "queen", "q":
		return Queen, true
	case "king", "k":
		return King, true
	default:
		return Pawn, false
	}
}

// Square is a board coordinate. Rank 0 is the top edge (Black's back rank).
type Square struct {
	File int
	Rank int
}

// Sq is shorthand for Square{File: file, Rank: rank}.
func Sq(file, rank int) Square { return Square{File: file, Rank: rank} }

// Valid reports whether both coordinates are inside the 8x8 board.
func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

// Offset returns the square shifted by df files and dr ranks. The result may be invalid.
func (s Square) Offset(df, dr int) Square {
	return Square{File: s.File + df, Rank: s.Rank + dr}
}

func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.File, s.Rank)
	}
	return string([]byte{byte('a' + s.File), byte('8' - s.Rank)})
}

// MarshalText renders the algebraic name, so squares work as JSON map keys.
func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("board: invalid square %v", s)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	v, ok := ParseSquare(string(b))
	if !ok {
		return fmt.Errorf("board: invalid square %q", b)
	}
	*s = v
	return nil
}

// ParseSquare parses an algebraic name such as "e2".
func ParseSquare(name string) (Square, bool) {
	if len(name) != 2 {
		return Square{}, false
	}
	f, r := name[0], name[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return Square{}, false
	}
	return Square{File: int(f - 'a'), Rank: int('8' - r)}, true
}

// Piece is a typed, colored piece. Moved is set once the piece has been relocated.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
	Moved bool      `json:"moved"`
}

func (p Piece) String() string {
	return p.Color.String() + " " + p.Type.String()
}

// HomeRank is the back rank of c.
func HomeRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// PawnRank is the starting rank of c's pawns.
func PawnRank(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// Forward is the rank delta of a pawn advance for c.
func Forward(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// LastRank is the promotion rank for c.
func LastRank(c Color) int {
	if c == White {
		return 0
	}
	return 7
}
