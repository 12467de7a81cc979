package board

import (
	"errors"
	"testing"
)

func TestNewStandardLayout(t *testing.T) {
	b := NewStandard()
	if b.Len() != 32 {
		t.Fatalf("expected 32 pieces, got %d", b.Len())
	}
	q, ok := b.PieceAt(Sq(3, 0))
	if !ok || q.Type != Queen || q.Color != Black {
		t.Fatalf("expected black queen on (3,0), got %v %v", q, ok)
	}
	k, ok := b.PieceAt(Sq(4, 7))
	if !ok || k.Type != King || k.Color != White {
		t.Fatalf("expected white king on (4,7), got %v %v", k, ok)
	}
	for f := 0; f < 8; f++ {
		if p, _ := b.PieceAt(Sq(f, 6)); p.Type != Pawn || p.Color != White {
			t.Fatalf("expected white pawn on (%d,6)", f)
		}
		if p, _ := b.PieceAt(Sq(f, 1)); p.Type != Pawn || p.Color != Black {
			t.Fatalf("expected black pawn on (%d,1)", f)
		}
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMoveCapturesOccupant(t *testing.T) {
	b := New()
	b.Place(Sq(0, 0), Piece{Type: Rook, Color: White})
	b.Place(Sq(0, 5), Piece{Type: Knight, Color: Black})

	captured, took := b.Move(Sq(0, 0), Sq(0, 5))
	if !took || captured.Type != Knight {
		t.Fatalf("expected knight capture, got %v %v", captured, took)
	}
	if b.Occupied(Sq(0, 0)) {
		t.Fatalf("origin should be empty after move")
	}
	p, ok := b.PieceAt(Sq(0, 5))
	if !ok || p.Type != Rook || !p.Moved {
		t.Fatalf("expected moved rook on destination, got %+v", p)
	}
	if got := b.Captured(); len(got) != 1 || got[0].Type != Knight {
		t.Fatalf("unexpected captured list %+v", got)
	}
}

func TestRemoveDoesNotRecordCapture(t *testing.T) {
	b := NewStandard()
	if _, ok := b.Remove(Sq(0, 1)); !ok {
		t.Fatalf("expected pawn to be removed")
	}
	if len(b.Captured()) != 0 {
		t.Fatalf("remove must not append to captured")
	}
	if _, ok := b.Capture(Sq(1, 1)); !ok {
		t.Fatalf("expected capture")
	}
	if len(b.Captured()) != 1 {
		t.Fatalf("capture must append to captured")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b := NewStandard()
	snap := b.Snapshot()
	delete(snap, Sq(4, 0))
	if !b.Occupied(Sq(4, 0)) {
		t.Fatalf("mutating a snapshot changed the board")
	}
	clone := b.Clone()
	clone.Move(Sq(4, 6), Sq(4, 4))
	if b.Occupied(Sq(4, 4)) {
		t.Fatalf("mutating a clone changed the board")
	}
}

func TestSetType(t *testing.T) {
	b := New()
	b.Place(Sq(2, 0), Piece{Type: Pawn, Color: White})
	if !b.SetType(Sq(2, 0), Queen) {
		t.Fatalf("SetType returned false")
	}
	if p, _ := b.PieceAt(Sq(2, 0)); p.Type != Queen {
		t.Fatalf("expected queen, got %v", p.Type)
	}
	if b.SetType(Sq(3, 3), Queen) {
		t.Fatalf("SetType on empty square should fail")
	}
}

func TestValidateKingCount(t *testing.T) {
	b := NewStandard()
	b.Place(Sq(3, 3), Piece{Type: King, Color: Black})
	if err := b.Validate(); !errors.Is(err, ErrKingCount) {
		t.Fatalf("expected ErrKingCount, got %v", err)
	}
}

func TestSquareString(t *testing.T) {
	if got := Sq(0, 0).String(); got != "a8" {
		t.Fatalf("expected a8, got %s", got)
	}
	if got := Sq(4, 6).String(); got != "e2" {
		t.Fatalf("expected e2, got %s", got)
	}
	if Sq(8, 0).Valid() || Sq(0, -1).Valid() {
		t.Fatalf("out of range squares reported valid")
	}
}

func TestParseSquareRoundTrip(t *testing.T) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			sq := Sq(f, r)
			got, ok := ParseSquare(sq.String())
			if !ok || got != sq {
				t.Fatalf("round trip of %v gave %v %v", sq, got, ok)
			}
		}
	}
	if _, ok := ParseSquare("i9"); ok {
		t.Fatalf("expected i9 to be rejected")
	}
}

func TestPlaceRejectsInvalidSquare(t *testing.T) {
	b := New()
	if b.Place(Sq(8, 0), Piece{Type: Rook, Color: White}) {
		t.Fatalf("Place off the board should report false")
	}
	if b.Place(Sq(0, -1), Piece{Type: Rook, Color: White}) {
		t.Fatalf("Place off the board should report false")
	}
	if b.Len() != 0 {
		t.Fatalf("rejected placement changed the board")
	}
	if !b.Place(Sq(0, 0), Piece{Type: Rook, Color: White}) {
		t.Fatalf("Place on a8 should succeed")
	}
}
