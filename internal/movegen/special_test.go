package movegen

import (
	"reflect"
	"testing"

	"clickchess/internal/board"
)

func castlingBoard() *board.Board {
	b := board.New()
	b.Place(board.Sq(4, 7), board.Piece{Type: board.King, Color: board.White})
	b.Place(board.Sq(0, 7), board.Piece{Type: board.Rook, Color: board.White})
	b.Place(board.Sq(7, 7), board.Piece{Type: board.Rook, Color: board.White})
	b.Place(board.Sq(4, 0), board.Piece{Type: board.King, Color: board.Black})
	return b
}

func TestCastlingTargetsBothSides(t *testing.T) {
	b := castlingBoard()
	want := []board.Square{board.Sq(6, 7), board.Sq(2, 7)}
	if got := CastlingTargets(b, board.Sq(4, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCastlingBlockedOrMoved(t *testing.T) {
	b := castlingBoard()
	b.Place(board.Sq(1, 7), board.Piece{Type: board.Knight, Color: board.White})
	want := []board.Square{board.Sq(6, 7)}
	if got := CastlingTargets(b, board.Sq(4, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected only kingside, got %v", got)
	}

	b = castlingBoard()
	b.Place(board.Sq(7, 7), board.Piece{Type: board.Rook, Color: board.White, Moved: true})
	want = []board.Square{board.Sq(2, 7)}
	if got := CastlingTargets(b, board.Sq(4, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected only queenside, got %v", got)
	}

	b = castlingBoard()
	b.Place(board.Sq(4, 7), board.Piece{Type: board.King, Color: board.White, Moved: true})
	if got := CastlingTargets(b, board.Sq(4, 7)); len(got) != 0 {
		t.Fatalf("moved king must not castle, got %v", got)
	}
}

func TestStandardPositionHasNoCastling(t *testing.T) {
	if got := CastlingTargets(board.NewStandard(), board.Sq(4, 7)); len(got) != 0 {
		t.Fatalf("expected no castling in the initial position, got %v", got)
	}
}

func TestCastlingRook(t *testing.T) {
	from, to := CastlingRook(board.Sq(4, 7), board.Sq(6, 7))
	if from != board.Sq(7, 7) || to != board.Sq(5, 7) {
		t.Fatalf("kingside rook: got %v -> %v", from, to)
	}
	from, to = CastlingRook(board.Sq(4, 0), board.Sq(2, 0))
	if from != board.Sq(0, 0) || to != board.Sq(3, 0) {
		t.Fatalf("queenside rook: got %v -> %v", from, to)
	}
}

func TestEnPassantTarget(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(4, 3), board.Piece{Type: board.Pawn, Color: board.White, Moved: true})
	b.Place(board.Sq(3, 3), board.Piece{Type: board.Pawn, Color: board.Black, Moved: true})
	last := &LastMove{From: board.Sq(3, 1), To: board.Sq(3, 3), Piece: board.Piece{Type: board.Pawn, Color: board.Black}}

	want := []board.Square{board.Sq(3, 2)}
	if got := EnPassantTargets(b, board.Sq(4, 3), last); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if v := EnPassantVictim(board.White, board.Sq(3, 2)); v != board.Sq(3, 3) {
		t.Fatalf("expected victim on d5, got %v", v)
	}
	if v := EnPassantVictim(board.Black, board.Sq(3, 5)); v != board.Sq(3, 4) {
		t.Fatalf("expected victim on d4, got %v", v)
	}
}

func TestEnPassantRequiresDoubleStepLastMove(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(4, 3), board.Piece{Type: board.Pawn, Color: board.White, Moved: true})
	b.Place(board.Sq(3, 3), board.Piece{Type: board.Pawn, Color: board.Black, Moved: true})

	single := &LastMove{From: board.Sq(3, 2), To: board.Sq(3, 3), Piece: board.Piece{Type: board.Pawn, Color: board.Black}}
	if got := EnPassantTargets(b, board.Sq(4, 3), single); len(got) != 0 {
		t.Fatalf("single step must not enable en passant, got %v", got)
	}
	if got := EnPassantTargets(b, board.Sq(4, 3), nil); len(got) != 0 {
		t.Fatalf("no last move must not enable en passant, got %v", got)
	}
	other := &LastMove{From: board.Sq(0, 1), To: board.Sq(0, 2), Piece: board.Piece{Type: board.Pawn, Color: board.Black}}
	if got := EnPassantTargets(b, board.Sq(4, 3), other); len(got) != 0 {
		t.Fatalf("unrelated last move must not enable en passant, got %v", got)
	}
}
