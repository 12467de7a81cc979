package movegen

import (
	"reflect"
	"testing"

	"clickchess/internal/board"
)

func destsAt(t *testing.T, b *board.Board, sq board.Square) []board.Square {
	t.Helper()
	p, ok := b.PieceAt(sq)
	if !ok {
		t.Fatalf("no piece on %v", sq)
	}
	return Destinations(b, p, sq)
}

func TestInitialQueenIsBlocked(t *testing.T) {
	b := board.NewStandard()
	if got := destsAt(t, b, board.Sq(3, 0)); len(got) != 0 {
		t.Fatalf("expected no queen moves, got %v", got)
	}
	if got := destsAt(t, b, board.Sq(3, 7)); len(got) != 0 {
		t.Fatalf("expected no queen moves, got %v", got)
	}
}

func TestInitialBlackPawn(t *testing.T) {
	b := board.NewStandard()
	want := []board.Square{board.Sq(0, 2), board.Sq(0, 3)}
	if got := destsAt(t, b, board.Sq(0, 1)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInitialWhitePawn(t *testing.T) {
	b := board.NewStandard()
	want := []board.Square{board.Sq(0, 5), board.Sq(0, 4)}
	if got := destsAt(t, b, board.Sq(0, 6)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInitialKnight(t *testing.T) {
	b := board.NewStandard()
	want := []board.Square{board.Sq(0, 2), board.Sq(2, 2)}
	if got := destsAt(t, b, board.Sq(1, 0)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEmptyOriginYieldsNothing(t *testing.T) {
	b := board.NewStandard()
	p := board.Piece{Type: board.Queen, Color: board.White}
	if got := Destinations(b, p, board.Sq(4, 4)); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := Destinations(b, p, board.Sq(-1, 9)); len(got) != 0 {
		t.Fatalf("expected empty result for off-board origin, got %v", got)
	}
}

func TestRookStopsAtBlockers(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(3, 4), board.Piece{Type: board.Rook, Color: board.White})
	b.Place(board.Sq(3, 2), board.Piece{Type: board.Pawn, Color: board.Black}) // up: capture then stop
	b.Place(board.Sq(3, 6), board.Piece{Type: board.Pawn, Color: board.White}) // down: stop before
	b.Place(board.Sq(1, 4), board.Piece{Type: board.Knight, Color: board.Black})

	want := []board.Square{
		board.Sq(3, 3), board.Sq(3, 2), // up
		board.Sq(3, 5),                 // down
		board.Sq(2, 4), board.Sq(1, 4), // left
		board.Sq(4, 4), board.Sq(5, 4), board.Sq(6, 4), board.Sq(7, 4), // right
	}
	if got := destsAt(t, b, board.Sq(3, 4)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBishopRayOrder(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(0, 7), board.Piece{Type: board.Bishop, Color: board.Black})
	b.Place(board.Sq(2, 5), board.Piece{Type: board.Pawn, Color: board.White})
	want := []board.Square{board.Sq(1, 6), board.Sq(2, 5)}
	if got := destsAt(t, b, board.Sq(0, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestKingSingleStep(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(0, 0), board.Piece{Type: board.King, Color: board.White})
	want := []board.Square{board.Sq(1, 0), board.Sq(0, 1), board.Sq(1, 1)}
	if got := destsAt(t, b, board.Sq(0, 0)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestKingStepOrder(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(4, 4), board.Piece{Type: board.King, Color: board.White})
	// up, right, down, left, then upLeft, upRight, downLeft, downRight
	want := []board.Square{
		board.Sq(4, 3), board.Sq(5, 4), board.Sq(4, 5), board.Sq(3, 4),
		board.Sq(3, 3), board.Sq(5, 3), board.Sq(3, 5), board.Sq(5, 5),
	}
	got := destsAt(t, b, board.Sq(4, 4))
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got[0].String() != "e5" || got[7].String() != "f3" {
		t.Fatalf("expected e5 first and f3 last, got %v", got)
	}
}

func TestSlidingNeverPassesBlocker(t *testing.T) {
	b := board.NewStandard()
	b.Move(board.Sq(4, 6), board.Sq(4, 4))
	b.Move(board.Sq(3, 1), board.Sq(3, 3))
	b.Move(board.Sq(5, 7), board.Sq(1, 3))
	b.Move(board.Sq(3, 0), board.Sq(6, 3))
	b.Move(board.Sq(0, 7), board.Sq(0, 4))

	for sq, p := range b.Snapshot() {
		s, ok := sliders[p.Type]
		if !ok {
			continue
		}
		got := Destinations(b, p, sq)
		for _, r := range s.rays {
			cur := sq
			for i := 0; i < s.limit; i++ {
				cur = cur.Offset(r.df, r.dr)
				if !cur.Valid() {
					break
				}
				occ, occupied := b.PieceAt(cur)
				if !occupied {
					if !Contains(got, cur) {
						t.Fatalf("%v on %v: open square %v missing from %v", p, sq, cur, got)
					}
					continue
				}
				if (occ.Color != p.Color) != Contains(got, cur) {
					t.Fatalf("%v on %v: blocker %v inclusion wrong in %v", p, sq, cur, got)
				}
				for j := i + 1; j < s.limit; j++ {
					cur = cur.Offset(r.df, r.dr)
					if cur.Valid() && rayHas(sq, r, cur) && Contains(got, cur) {
						t.Fatalf("%v on %v: square %v beyond blocker returned", p, sq, cur)
					}
				}
				break
			}
		}
	}
}

// rayHas reports whether sq lies on ray r from origin.
func rayHas(origin board.Square, r ray, sq board.Square) bool {
	for cur := origin.Offset(r.df, r.dr); cur.Valid(); cur = cur.Offset(r.df, r.dr) {
		if cur == sq {
			return true
		}
	}
	return false
}

func TestPawnCapturesOnlyDiagonalEnemies(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(4, 4), board.Piece{Type: board.Pawn, Color: board.White, Moved: true})
	b.Place(board.Sq(4, 3), board.Piece{Type: board.Knight, Color: board.Black}) // blocks push
	b.Place(board.Sq(5, 3), board.Piece{Type: board.Rook, Color: board.Black})
	b.Place(board.Sq(3, 3), board.Piece{Type: board.Rook, Color: board.White})
	want := []board.Square{board.Sq(5, 3)}
	if got := destsAt(t, b, board.Sq(4, 4)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPawnDoubleStepNeedsBothSquares(t *testing.T) {
	b := board.NewStandard()
	b.Place(board.Sq(2, 4), board.Piece{Type: board.Knight, Color: board.Black})
	want := []board.Square{board.Sq(2, 5)}
	if got := destsAt(t, b, board.Sq(2, 6)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestKnightOnEdge(t *testing.T) {
	b := board.New()
	b.Place(board.Sq(7, 7), board.Piece{Type: board.Knight, Color: board.White})
	b.Place(board.Sq(6, 5), board.Piece{Type: board.Pawn, Color: board.White})
	want := []board.Square{board.Sq(5, 6)}
	if got := destsAt(t, b, board.Sq(7, 7)); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
